package export

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"chess_review/internal/domain/report"
)

const parallel = 4

// PlyRow is one graded ply flattened for columnar analysis.
type PlyRow struct {
	ReportID      string `parquet:"name=report_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ply           int32  `parquet:"name=ply, type=INT32"`
	Side          string `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Move          string `parquet:"name=move, type=BYTE_ARRAY, convertedtype=UTF8"`
	PlayedMove    string `parquet:"name=played_uci, type=BYTE_ARRAY, convertedtype=UTF8"`
	BestMove      string `parquet:"name=best_uci, type=BYTE_ARRAY, convertedtype=UTF8"`
	CentipawnLoss int32  `parquet:"name=cpl, type=INT32"`
	BestEval      int32  `parquet:"name=best_eval, type=INT32"`
	Tag           string `parquet:"name=tag, type=BYTE_ARRAY, convertedtype=UTF8"`
	Phase         string `parquet:"name=phase, type=BYTE_ARRAY, convertedtype=UTF8"`
	OnlyMove      bool   `parquet:"name=only_move, type=BOOLEAN"`
	Agreement     bool   `parquet:"name=agreement, type=BOOLEAN"`
}

func Rows(rep report.Report) []PlyRow {
	rows := make([]PlyRow, 0, len(rep.PerPly))
	for _, g := range rep.PerPly {
		row := PlyRow{
			ReportID:      rep.ID,
			Ply:           int32(g.Ply),
			Side:          "black",
			PlayedMove:    g.PlayedMove,
			BestMove:      g.BestMove,
			CentipawnLoss: int32(g.CentipawnLoss),
			Tag:           string(g.Tag),
			Phase:         string(g.Phase),
			OnlyMove:      g.IsOnlyGoodMove,
			Agreement:     g.AgreesWithBest,
		}
		if g.Ply%2 == 1 {
			row.Side = "white"
		}
		if g.Ply-1 < len(rep.MoveTexts) && g.Ply > 0 {
			row.Move = rep.MoveTexts[g.Ply-1]
		}
		if g.BestScore != nil {
			row.BestEval = int32(g.BestScore.Centipawns())
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteParquet writes one row per graded ply of every report to path.
func WriteParquet(path string, reps ...report.Report) error {
	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer fileWriter.Close()

	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(PlyRow), parallel)
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rep := range reps {
		for _, row := range Rows(rep) {
			if err := parquetWriter.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	if err := parquetWriter.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet: %w", err)
	}
	return nil
}

func ReadParquet(path string) ([]PlyRow, error) {
	fileReader, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(PlyRow), parallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	rows := make([]PlyRow, int(parquetReader.GetNumRows()))
	if len(rows) == 0 {
		return rows, nil
	}
	if err := parquetReader.Read(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
