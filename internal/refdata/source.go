package refdata

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	apperrors "nse-fees/internal/errors"
)

// File names inside a dataset directory.
const (
	StocksFileName  = "stocks.json"
	BrokersFileName = "brokers.json"
)

// Source loads a Dataset.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

//go:embed data/*.json
var embedded embed.FS

// EmbeddedSource serves the dataset compiled into the binary.
type EmbeddedSource struct{}

// Load decodes the embedded dataset.
func (EmbeddedSource) Load(ctx context.Context) (*Dataset, error) {
	var (
		sf StockFile
		bf BrokerFile
	)
	if err := decodeEmbedded(StocksFileName, &sf); err != nil {
		return nil, err
	}
	if err := decodeEmbedded(BrokersFileName, &bf); err != nil {
		return nil, err
	}
	return finish(FromFiles(sf, bf))
}

func decodeEmbedded(name string, v interface{}) error {
	b, err := embedded.ReadFile("data/" + name)
	if err != nil {
		return apperrors.NewDataError("embedded", name, "read failed", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return apperrors.NewDataError("embedded", name, "decode failed", err)
	}
	return nil
}

// DirSource reads and writes the dataset as JSON files in a directory.
type DirSource struct {
	Dir string
}

// NewDirSource returns a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Load reads both dataset files concurrently.
func (s *DirSource) Load(ctx context.Context) (*Dataset, error) {
	var (
		sf StockFile
		bf BrokerFile
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readFile(StocksFileName, &sf) })
	g.Go(func() error { return s.readFile(BrokersFileName, &bf) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return finish(FromFiles(sf, bf))
}

// SaveStocks writes the stock half of ds.
func (s *DirSource) SaveStocks(ctx context.Context, ds *Dataset) error {
	sf, _ := ds.Files()
	return s.writeFile(StocksFileName, sf)
}

// Save writes both halves of ds.
func (s *DirSource) Save(ctx context.Context, ds *Dataset) error {
	sf, bf := ds.Files()
	if err := s.writeFile(StocksFileName, sf); err != nil {
		return err
	}
	return s.writeFile(BrokersFileName, bf)
}

func (s *DirSource) readFile(name string, v interface{}) error {
	path := filepath.Join(s.Dir, name)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewDataError("file", path, "not found", apperrors.ErrDataNotFound)
		}
		return apperrors.NewDataError("file", path, "read failed", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return apperrors.NewDataError("file", path, "decode failed", err)
	}
	return nil
}

// writeFile replaces name atomically via a temp file in the same directory.
func (s *DirSource) writeFile(name string, v interface{}) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.Dir, name))
}

func finish(ds *Dataset) (*Dataset, error) {
	if ds.DefaultBrokerID == "" {
		ds.DefaultBrokerID = DefaultBrokerID
	}
	if len(ds.Popular) == 0 {
		ds.Popular = append([]string(nil), DefaultPopular...)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}
