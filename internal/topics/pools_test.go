package topics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPools(t *testing.T) {
	p := Default()
	require.Len(t, p, 4)
	for _, key := range []string{"banca_rookie", "banca_vintage", "retail_rookie", "retail_vintage"} {
		assert.Len(t, p[key], 10, key)
	}
	assert.Equal(t, "Customer Service Excellence", p.Lookup("Banca", "Rookie")[0])
	assert.Equal(t, p.Lookup("banca", "ROOKIE"), p.Lookup("Banca", "Rookie"))
	assert.Nil(t, p.Lookup("Insurance", "Rookie"))
}

func TestDefaultReturnsCopy(t *testing.T) {
	p := Default()
	p["banca_rookie"][0] = "changed"
	assert.Equal(t, "Customer Service Excellence", Default()["banca_rookie"][0])
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
pools:
  - channel: Banca
    category: Rookie
    topics: [Sales Techniques, " Product Knowledge ", ""]
  - channel: Insurance
    category: Vintage
    topics:
      - Claims Handling
`)
	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales Techniques", "Product Knowledge"}, p.Lookup("Banca", "Rookie"))
	assert.Equal(t, []string{"Claims Handling"}, p.Lookup("Insurance", "Vintage"))
}

func TestLoadFileRejects(t *testing.T) {
	cases := map[string]string{
		"duplicate pool": `
pools:
  - {channel: Banca, category: Rookie, topics: [A]}
  - {channel: banca, category: rookie, topics: [B]}`,
		"duplicate topic": `
pools:
  - {channel: Banca, category: Rookie, topics: [A, A]}`,
		"missing category": `
pools:
  - {channel: Banca, topics: [A]}`,
		"empty": `pools: []`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}
