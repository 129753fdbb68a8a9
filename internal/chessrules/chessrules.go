// Package chessrules wraps the move generator used to validate positions,
// translate move notations and replay games.
package chessrules

import (
	"fmt"
	"io"
	"strings"

	"github.com/notnil/chess"

	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
)

// ParsePosition decodes a FEN. "startpos" and "" mean the initial position.
func ParsePosition(fen string) (*chess.Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		fen = domain.StartFEN
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: fen %q: %v", errs.ErrInvalidInput, fen, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// NormalizeFEN validates fen and returns it in canonical form.
func NormalizeFEN(fen string) (string, error) {
	pos, err := ParsePosition(fen)
	if err != nil {
		return "", err
	}
	return PositionToText(pos), nil
}

// PositionToText renders pos as a FEN.
func PositionToText(pos *chess.Position) string {
	return pos.String()
}

// MoveToWire renders a move in long algebraic (UCI) form, e.g. e7e8q.
func MoveToWire(m *chess.Move) string {
	s := m.S1().String() + m.S2().String()
	if m.Promo() != chess.NoPieceType {
		s += strings.ToLower(m.Promo().String())
	}
	return s
}

// legal returns pos's legal moves keyed by their wire form.
func legal(pos *chess.Position) map[string]*chess.Move {
	moves := pos.ValidMoves()
	out := make(map[string]*chess.Move, len(moves))
	for _, m := range moves {
		out[MoveToWire(m)] = m
	}
	return out
}

// ParseMoveText resolves a move written in SAN or UCI against pos.
func ParseMoveText(pos *chess.Position, text string) (*chess.Move, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty move", errs.ErrMoveResolution)
	}
	if m, err := (chess.AlgebraicNotation{}).Decode(pos, text); err == nil {
		if lm, ok := legal(pos)[MoveToWire(m)]; ok {
			return lm, nil
		}
	}
	if lm, ok := legal(pos)[strings.ToLower(text)]; ok {
		return lm, nil
	}
	return nil, fmt.Errorf("%w: %q", errs.ErrMoveResolution, text)
}

// IsLegal reports whether wire is a legal move in fen.
func IsLegal(fen, wire string) bool {
	pos, err := ParsePosition(fen)
	if err != nil {
		return false
	}
	_, ok := legal(pos)[strings.ToLower(wire)]
	return ok
}

// ApplyMove plays a move given in any supported notation and returns the
// resulting FEN.
func ApplyMove(fen, text string) (string, error) {
	pos, err := ParsePosition(fen)
	if err != nil {
		return "", err
	}
	m, err := ParseMoveText(pos, text)
	if err != nil {
		return "", err
	}
	return pos.Update(m).String(), nil
}

// SideToMove returns "w" or "b".
func SideToMove(fen string) (string, error) {
	pos, err := ParsePosition(fen)
	if err != nil {
		return "", err
	}
	if pos.Turn() == chess.White {
		return "w", nil
	}
	return "b", nil
}

// ResolvePlayedMove finds the wire form of the move that leads from pre to
// next. The recorded move text is tried first; when it does not parse, every
// legal move of pre is played and compared against next.
func ResolvePlayedMove(pre, text, next string) (string, error) {
	pos, err := ParsePosition(pre)
	if err != nil {
		return "", err
	}
	if text != "" {
		if m, err := ParseMoveText(pos, text); err == nil {
			return MoveToWire(m), nil
		}
	}
	if next == "" {
		return "", fmt.Errorf("%w: %q from %s", errs.ErrMoveResolution, text, pre)
	}
	target, err := ParsePosition(next)
	if err != nil {
		return "", err
	}
	want := placementKey(target.String())
	for wire, m := range legal(pos) {
		if placementKey(pos.Update(m).String()) == want {
			return wire, nil
		}
	}
	return "", fmt.Errorf("%w: no legal move reaches %s", errs.ErrMoveResolution, next)
}

// placementKey keeps board, side to move and castling rights. En passant
// squares are written inconsistently across tools.
func placementKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	return strings.Join(fields, " ")
}

// Game is a replayed game: the start position, the position after every ply
// and the SAN of every ply.
type Game struct {
	StartFEN  string
	Positions []string
	MoveTexts []string
	Result    string
}

func replay(g *chess.Game) Game {
	positions := g.Positions()
	moves := g.Moves()
	out := Game{Result: string(g.Outcome())}
	if len(positions) > 0 {
		out.StartFEN = positions[0].String()
	}
	for i, m := range moves {
		out.MoveTexts = append(out.MoveTexts, (chess.AlgebraicNotation{}).Encode(positions[i], m))
		out.Positions = append(out.Positions, positions[i+1].String())
	}
	return out
}

// GameFromPGN replays a single-game PGN.
func GameFromPGN(r io.Reader) (Game, error) {
	opt, err := chess.PGN(r)
	if err != nil {
		return Game{}, fmt.Errorf("%w: pgn: %v", errs.ErrInvalidInput, err)
	}
	return replay(chess.NewGame(opt)), nil
}

// ScanPGN replays every game of a multi-game PGN file.
func ScanPGN(r io.Reader) ([]Game, error) {
	scanner := chess.NewScanner(r)
	var games []Game
	for scanner.Scan() {
		games = append(games, replay(scanner.Next()))
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return games, fmt.Errorf("%w: pgn: %v", errs.ErrInvalidInput, err)
	}
	return games, nil
}

// GameFromMoves replays move texts from start, failing on the first illegal
// one.
func GameFromMoves(start string, moves []string) (Game, error) {
	pos, err := ParsePosition(start)
	if err != nil {
		return Game{}, err
	}
	out := Game{StartFEN: pos.String()}
	for i, text := range moves {
		m, err := ParseMoveText(pos, text)
		if err != nil {
			return Game{}, fmt.Errorf("ply %d: %w", i+1, err)
		}
		out.MoveTexts = append(out.MoveTexts, (chess.AlgebraicNotation{}).Encode(pos, m))
		pos = pos.Update(m)
		out.Positions = append(out.Positions, pos.String())
	}
	return out, nil
}

// Resolver exposes ResolvePlayedMove as a method value for callers that take
// an interface.
type Resolver struct{}

func (Resolver) ResolvePlayedMove(pre, text, next string) (string, error) {
	return ResolvePlayedMove(pre, text, next)
}
