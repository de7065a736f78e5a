package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/vesselinfo/internal/fetch"
	"github.com/ppiankov/vesselinfo/internal/model"
	"github.com/ppiankov/vesselinfo/internal/tool"
)

const sampleCSV = `MMSI,BaseDateTime,LAT,LON,SOG,COG,Heading,VesselName,IMO,CallSign,VesselType,Status,Length,Width,Draft,Cargo,TransceiverClass
366123456,2024-01-01T00:00:00,37.80512,-122.41987,0.1,215.3,511,SEA STAR,IMO9434761,WDC1234,70,5,180,28,9.5,71,A
366123456,2024-01-01T00:03:00,37.80513,-122.41988,0.0,215.3,511,SEA STAR,IMO9434761,WDC1234,70,5,180,28,9.5,71,A
367000001,2024-01-01T00:01:00,37.9,-122.5,11.2,90,88,BAY TUG,,,52,0,25,8,3,,A
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AIS_2024_01_01.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	c, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), c)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  sources: [a.csv, "s3://bucket/ais/"]
query:
  max_results: 25
  cache_ttl: 30s
server:
  transport: http
`), 0o644))

	t.Setenv("VESSELINFO_SERVER_ADDR", ":9090")
	t.Setenv("VESSELINFO_LLM_API_KEY", "sk-test")

	c, err := loadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.csv", "s3://bucket/ais/"}, c.Store.Sources)
	assert.Equal(t, 25, c.Query.MaxResults)
	assert.Equal(t, 30*time.Second, c.Query.CacheTTL)
	assert.True(t, c.Query.CacheEnabled, "unset keys keep their defaults")
	assert.Equal(t, "http", c.Server.Transport)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, "sk-test", c.LLM.APIKey)
	assert.Equal(t, 4, c.Store.Workers)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(model.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = newLogger(model.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = newLogger(model.LogConfig{Level: "info", Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")
}

func TestStoreOptions_Delimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{",", ',', false},
		{"", 0, false},
		{"|", '|', false},
		{`\t`, '\t', false},
		{";;", 0, true},
	}
	for _, tt := range tests {
		c := model.DefaultConfig()
		c.Store.Delimiter = tt.in
		opts, err := storeOptions(c)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, opts.Delimiter, tt.in)
	}
}

func TestBuildHandler_LookupTool(t *testing.T) {
	c := model.DefaultConfig()
	c.Store.Sources = []string{writeSample(t)}
	c.Query.MaxResults = 10

	h, err := buildHandler(context.Background(), c)
	require.NoError(t, err)

	lt := lookupTool(h)
	assert.Equal(t, "vessel_lookup", lt.Name)
	assert.NotEmpty(t, lt.Description)
	assert.JSONEq(t, string(tool.InputSchema()), string(lt.Parameters))

	result, failed := lt.Call(context.Background(), map[string]any{
		"kind":       "lookupByName",
		"parameters": map[string]any{"name": "bay tug"},
	})
	require.False(t, failed)
	resp := result.(*tool.Response)
	assert.Equal(t, model.ResultOK, resp.Status)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, int64(367000001), resp.Records[0].MMSI)
	assert.Equal(t, "Tug", resp.Records[0].VesselTypeDescription)

	result, failed = lt.Call(context.Background(), map[string]any{"kind": "lookupByName"})
	assert.True(t, failed)
	assert.Equal(t, model.ResultInvalid, result.(*tool.Response).Status)
}

func TestBuildHandler_CustomLookup(t *testing.T) {
	table := filepath.Join(t.TempDir(), "types.csv")
	require.NoError(t, os.WriteFile(table, []byte("Code,Description\n52,Harbor tug\n"), 0o644))

	c := model.DefaultConfig()
	c.Store.Sources = []string{writeSample(t)}
	c.Store.VesselTypeLookup = table
	c.Query.CacheEnabled = false

	h, err := buildHandler(context.Background(), c)
	require.NoError(t, err)

	resp, failed := h.Respond(context.Background(), map[string]any{
		"kind":       "lookupByIdentifier",
		"parameters": map[string]any{"mmsi": 367000001},
	})
	require.False(t, failed)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Harbor tug", resp.Records[0].VesselTypeDescription)
}

func TestBuildHandler_NoSources(t *testing.T) {
	c := model.DefaultConfig()
	c.Store.Sources = []string{filepath.Join(t.TempDir(), "empty", "*.csv")}

	_, err := buildHandler(context.Background(), c)
	assert.Error(t, err)
}

func TestApplyStoreFlags(t *testing.T) {
	defer func() { sourceFlags, maxResults, noCache = nil, 0, false }()

	sourceFlags = []string{"x.csv"}
	maxResults = 7
	noCache = true

	c := model.DefaultConfig()
	applyStoreFlags(c)
	assert.Equal(t, []string{"x.csv"}, c.Store.Sources)
	assert.Equal(t, 7, c.Query.MaxResults)
	assert.False(t, c.Query.CacheEnabled)
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	c, err := loadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), c)

	assert.ErrorContains(t, writeDefaultConfig(path), "already exists")
}

func TestWriteStats(t *testing.T) {
	c := model.DefaultConfig()
	c.Store.Sources = []string{writeSample(t)}
	s, err := loadStore(context.Background(), c)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, s, time.Second, true))

	text := out.String()
	assert.Regexp(t, `Records:\s+3\n`, text)
	assert.Regexp(t, `Vessels:\s+2\n`, text)
	assert.Regexp(t, `0 under way using engine\s+1 records`, text)
	assert.Regexp(t, `5 moored\s+2 records`, text)
	assert.Contains(t, text, "AIS_2024_01_01.csv")
}

func TestFilterLinks(t *testing.T) {
	links := []fetch.Link{
		{URL: "u1", Name: "AIS_2024_01_01.zip"},
		{URL: "u2", Name: "AIS_2024_02_01.zip"},
	}
	assert.Len(t, filterLinks(links, ""), 2)
	assert.Equal(t, []fetch.Link{links[1]}, filterLinks(links, "_02_"))
	assert.Empty(t, filterLinks(links, "2023"))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KiB", humanBytes(1536))
	assert.Equal(t, "300.0 MiB", humanBytes(300<<20))
}
