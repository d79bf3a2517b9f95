package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name: "headers and records",
			options: WriteOptions{
				Headers: []string{"Berufsbezeichnung", "Anzahl"},
				Records: [][]string{{"Data Scientist", "3"}, {"HR, Recht", "1"}},
			},
			want: "Berufsbezeichnung,Anzahl\nData Scientist,3\n\"HR, Recht\",1\n",
		},
		{
			name: "byte order mark",
			options: WriteOptions{
				Headers:   []string{"a"},
				BOMPrefix: true,
			},
			want: "\ufeffa\n",
		},
		{
			name:    "no headers",
			options: WriteOptions{Records: [][]string{{"1", "2"}}},
			want:    "1,2\n",
		},
	}

	w := NewCSVWriter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", "out.csv")
			require.NoError(t, w.WriteCSV(path, tt.options))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}
