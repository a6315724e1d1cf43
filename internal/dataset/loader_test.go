package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

func TestParse_RequiresStudentColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("name,Marks in Physics\na,4\n"))

	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	assert.Contains(t, err.Error(), "user_id")
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))

	assert.ErrorIs(t, err, domain.ErrMalformedDataset)
}

func TestParse_RaggedRow(t *testing.T) {
	_, err := Parse(strings.NewReader("user_id,a,b\ns1,1,2\ns2,1\n"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedDataset)
	assert.Contains(t, err.Error(), "line 3")
}

func TestParse_SkipsRowsWithoutStudent(t *testing.T) {
	ds, err := Parse(strings.NewReader("user_id,a\ns1,1\n ,2\ns2,3\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s2"}, ds.StudentIDs())
	assert.Equal(t, 3, ds.Records[1].Row)
}

func TestParse_KeepsHeaderOrder(t *testing.T) {
	ds, err := Parse(strings.NewReader(" zeta ,user_id,alpha\n1,s1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "user_id", "alpha"}, ds.Header)
	assert.Equal(t, []string{"zeta", "user_id", "alpha"}, ds.Records[0].Names())
}

func TestLoader_DecodesLatin1File(t *testing.T) {
	// 0xE9 is é in ISO-8859-1 and invalid on its own in UTF-8.
	data := []byte("user_id,Chemistry Chapters\ns1,Caf\xe9 Chemistry\n")
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loader, err := NewLoader("ISO-8859-1", 0, nil)
	require.NoError(t, err)

	ds, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	v, ok := ds.Records[0].Value("Chemistry Chapters")
	require.True(t, ok)
	assert.Equal(t, "Café Chemistry", v)
}

func TestLoader_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	loader, err := NewLoader("UTF-8", 0, nil)
	require.NoError(t, err)

	ds, err := loader.Load(context.Background(), srv.URL+"/results.csv")
	require.NoError(t, err)
	assert.Len(t, ds.Records, 4)

	_, err = loader.Load(context.Background(), srv.URL+"/missing.csv")
	assert.ErrorIs(t, err, domain.ErrDatasetUnavailable)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLoader_MissingFile(t *testing.T) {
	loader, err := NewLoader("latin1", 0, nil)
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, domain.ErrDatasetUnavailable)
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"ISO-8859-1", "latin1", "windows-1252", "UTF-8", ""} {
		_, err := LookupEncoding(name)
		assert.NoError(t, err, name)
	}

	_, err := LookupEncoding("shift-jis")
	assert.True(t, domain.IsCode(err, domain.ErrCodeValidation))
}
