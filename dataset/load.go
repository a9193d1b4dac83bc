package dataset

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// MissingMarkers are the cell texts read as a missing value.
var MissingMarkers = []string{"", "NA", "NaN", "<nil>"}

// Load reads a comma-separated file with a header row into a Table.
//
// A path that does not exist yields a NotFound error. Any other failure to
// read or parse the file yields a LoadError wrapping the cause.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError("dataset.Load", path, err)
		}
		return nil, errors.NewLoadError("dataset.Load", path, err)
	}
	defer f.Close()

	t, err := readCSV(f)
	if err != nil {
		return nil, errors.NewLoadError("dataset.Load", path, err)
	}
	return t, nil
}

// ReadCSV reads comma-separated data with a header row from r.
func ReadCSV(r io.Reader) (*Table, error) {
	t, err := readCSV(r)
	if err != nil {
		return nil, errors.NewLoadError("dataset.ReadCSV", "", err)
	}
	return t, nil
}

func readCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, errors.New("input is not valid UTF-8")
	}
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode input")
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, errors.New("input is empty")
	}

	df := dataframe.ReadCSV(bytes.NewReader(text), dataframe.NaNValues(MissingMarkers))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "parse csv")
	}
	return FromDataFrame(df)
}

// WriteCSV writes the table with a header row. Missing cells are written as
// NaN, which Load reads back as missing.
func (t *Table) WriteCSV(w io.Writer) error {
	if err := t.df.WriteCSV(w); err != nil {
		return errors.Wrap(err, "dataset: write csv")
	}
	return nil
}
