package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
)

const defaultDownloadTimeout = 30 * time.Second

// Loader reads a results sheet from a URL or a local path.
type Loader struct {
	client   *http.Client
	encoding encoding.Encoding
	logger   *zap.Logger
}

// LookupEncoding resolves a charset name accepted by the loader.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-8", "utf8", "":
		return unicode.UTF8BOM, nil
	}
	return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("unsupported dataset encoding: %s", name))
}

// NewLoader creates a Loader decoding the given charset.
func NewLoader(encodingName string, timeout time.Duration, logger *zap.Logger) (*Loader, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &Loader{
		client:   &http.Client{Timeout: timeout},
		encoding: enc,
		logger:   logging.OrNop(logger),
	}, nil
}

// Load fetches and parses the sheet at location.
func (l *Loader) Load(ctx context.Context, location string) (*Dataset, error) {
	start := time.Now()

	rc, err := l.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, err := Parse(transform.NewReader(rc, l.encoding.NewDecoder()))
	if err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		zap.String("location", location),
		zap.Int("rows", len(ds.Records)),
		zap.Int("students", len(ds.order)),
		zap.Duration("duration", time.Since(start)),
	)
	return ds, nil
}

func (l *Loader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isURL(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, domain.ErrDatasetUnavailable.Message, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, domain.ErrDatasetUnavailable.Message, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, domain.ErrDatasetUnavailable.Message,
			fmt.Errorf("GET %s: status %d", location, resp.StatusCode))
	}
	return resp.Body, nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Parse reads an already-decoded CSV stream. The first row is the header
// and must contain user_id.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMalformedDataset.Message, errors.New("missing header row"))
	}
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMalformedDataset.Message, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	idCol := -1
	for i, name := range header {
		if name == ColumnStudentID {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message,
			fmt.Errorf("column %q not found", ColumnStudentID))
	}

	var records []domain.Record
	row := 0
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ParseError carries the line number.
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMalformedDataset.Message, err)
		}
		row++

		id := strings.TrimSpace(cells[idCol])
		if id == "" {
			continue
		}
		fields := make([]domain.Field, len(header))
		for i, name := range header {
			fields[i] = domain.Field{Name: name, Value: cells[i]}
		}
		records = append(records, domain.Record{StudentID: id, Row: row, Fields: fields})
	}

	return New(header, records), nil
}
