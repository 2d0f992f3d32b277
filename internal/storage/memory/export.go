package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	v1 "github.com/bikesim/drivetrain/internal/storage/memory/export/v1"
)

// exportJSON writes the session to a JSON file, gzipped if configured
func (b *Backend) exportJSON() error {
	export := v1.Build(&v1.SessionData{
		Service:   b.service,
		StartTime: b.startTime,
		EndTime:   b.now(),
		Rebuilds:  b.rebuilds,
	})

	timestamp := b.startTime.Format("20060102_150405")
	filename := fmt.Sprintf("rebuilds_%s.json", timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.logger.Info("Exported rebuild journal", "path", outputPath, "rebuilds", len(b.rebuilds))
	return nil
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data v1.Export) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer func() {
		if cerr := gzWriter.Close(); err == nil {
			err = cerr
		}
	}()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
