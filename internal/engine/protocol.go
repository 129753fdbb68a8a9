package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chess_review/internal/domain"
)

// EventType represents a UCI protocol line type.
type EventType int

const (
	EventUnknown EventType = iota
	EventID
	EventUCIOK
	EventReadyOK
	EventInfo
	EventBestMove
)

// Event is a parsed UCI protocol line.
type Event struct {
	Type   EventType
	Key    string
	Value  string
	Move   string
	Ponder string
	Info   domain.Info
	Raw    string
}

// keys followed by exactly one argument that the report has no use for
var skippedInfoKeys = map[string]bool{
	"currmove":       true,
	"currmovenumber": true,
	"hashfull":       true,
	"tbhits":         true,
	"sbhits":         true,
	"cpuload":        true,
}

// ParseLine converts a raw engine line into a protocol event.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, errors.New("empty line")
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "id":
		if len(fields) < 3 {
			return Event{}, fmt.Errorf("invalid id: %q", line)
		}
		return Event{Type: EventID, Key: fields[1], Value: strings.Join(fields[2:], " "), Raw: line}, nil
	case "uciok":
		return Event{Type: EventUCIOK, Raw: line}, nil
	case "readyok":
		return Event{Type: EventReadyOK, Raw: line}, nil
	case "bestmove":
		if len(fields) < 2 {
			return Event{}, fmt.Errorf("invalid bestmove: %q", line)
		}
		e := Event{Type: EventBestMove, Move: fields[1], Raw: line}
		if e.Move == "(none)" || e.Move == "0000" {
			e.Move = ""
		}
		if len(fields) >= 4 && fields[2] == "ponder" {
			e.Ponder = fields[3]
		}
		return e, nil
	case "info":
		info, err := ParseInfo(fields[1:])
		if err != nil {
			return Event{}, fmt.Errorf("invalid info %q: %w", line, err)
		}
		return Event{Type: EventInfo, Info: info, Raw: line}, nil
	default:
		return Event{Type: EventUnknown, Raw: line}, nil
	}
}

// ParseInfo tokenizes the fields following "info" into a closed record.
// Recognized keys must carry well-formed values; anything else is skipped.
func ParseInfo(fields []string) (domain.Info, error) {
	var info domain.Info
	for i := 0; i < len(fields); i++ {
		key := fields[i]
		switch key {
		case "depth", "seldepth", "multipv":
			v, err := intArg(fields, i)
			if err != nil {
				return domain.Info{}, err
			}
			switch key {
			case "depth":
				info.Depth = v
			case "seldepth":
				info.SelDepth = v
			default:
				info.MultiPV = v
			}
			i++
		case "nodes", "nps", "time":
			v, err := int64Arg(fields, i)
			if err != nil {
				return domain.Info{}, err
			}
			switch key {
			case "nodes":
				info.Nodes = v
			case "nps":
				info.NPS = v
			default:
				info.TimeMs = v
			}
			i++
		case "score":
			if i+2 >= len(fields) {
				return domain.Info{}, errors.New("truncated score")
			}
			kind := domain.ScoreKind(fields[i+1])
			if kind != domain.ScoreCentipawns && kind != domain.ScoreMate {
				return domain.Info{}, fmt.Errorf("unknown score kind %q", kind)
			}
			v, err := strconv.Atoi(fields[i+2])
			if err != nil {
				return domain.Info{}, fmt.Errorf("score value: %w", err)
			}
			info.Score = &domain.Score{Kind: kind, Value: v}
			i += 2
			if i+1 < len(fields) && (fields[i+1] == "lowerbound" || fields[i+1] == "upperbound") {
				info.Bound = fields[i+1]
				i++
			}
		case "wdl":
			i += 3
		case "pv":
			info.PV = append([]string(nil), fields[i+1:]...)
			return info, nil
		case "string", "refutation", "currline":
			return info, nil
		default:
			if skippedInfoKeys[key] {
				i++
			}
		}
	}
	return info, nil
}

func intArg(fields []string, i int) (int, error) {
	if i+1 >= len(fields) {
		return 0, fmt.Errorf("missing value for %s", fields[i])
	}
	v, err := strconv.Atoi(fields[i+1])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fields[i], err)
	}
	return v, nil
}

func int64Arg(fields []string, i int) (int64, error) {
	if i+1 >= len(fields) {
		return 0, fmt.Errorf("missing value for %s", fields[i])
	}
	v, err := strconv.ParseInt(fields[i+1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fields[i], err)
	}
	return v, nil
}

// goCommand renders the search command for a request.
func goCommand(req domain.AnalysisRequest) string {
	var sb strings.Builder
	sb.WriteString("go depth ")
	sb.WriteString(strconv.Itoa(req.SearchDepth))
	if len(req.RestrictToMoves) > 0 {
		sb.WriteString(" searchmoves ")
		sb.WriteString(strings.Join(req.RestrictToMoves, " "))
	}
	return sb.String()
}

func positionCommand(fen string) string {
	if fen == "" || fen == "startpos" {
		return "position startpos"
	}
	return "position fen " + fen
}

func setOptionCommand(name, value string) string {
	return fmt.Sprintf("setoption name %s value %s", name, value)
}
