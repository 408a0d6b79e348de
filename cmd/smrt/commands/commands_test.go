package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/assistant"
	"github.com/teranos/smrt/version"
)

// withDataDir points the configuration at a directory of small CSV tables
func withDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"customer.csv": "CID,FNAME1,LNAME,CITY,STATE\nC001,Alice,Smith,Austin,TX\nC002,Bob,Jones,Boston,MA\n",
		"orders.csv":   "IID,CID,INDATE,PIF,SUBTOTAL\nO1,C001,2024-01-05,Y,100\nO2,C002,2024-02-07,N,40\n",
		"details.csv":  "Item_ID,IID,item_name,item_count,item_baseprice\nD1,O1,Wool Suit,1,100\n",
		"products.csv": "item_id,name,baseprice\nP1,Wool Suit,100\nP2,Silk Tie,25\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	t.Setenv("SMRT_DATA_SOURCE", am.SourceDir)
	t.Setenv("SMRT_DATA_DIR", dir)
	t.Setenv("SMRT_CLASSIFIER_PROVIDER", am.ProviderNone)
	am.Reset()
	t.Cleanup(am.Reset)
	return dir
}

func TestNewAppLoadsDirectory(t *testing.T) {
	withDataDir(t)

	a, err := newApp()
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.load(context.Background()))
	rows, ok := a.store.Table("customer")
	require.True(t, ok)
	assert.Equal(t, 2, rows)
	assert.False(t, a.assistant.ClassifierAvailable())

	reply, err := a.assistant.Ask(context.Background(), "how many customers do we have")
	require.NoError(t, err)
	assert.Equal(t, assistant.StatusSuccess, reply.Status)
	assert.Contains(t, reply.Response, "2 customers")
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	withDataDir(t)
	t.Setenv("SMRT_DATA_SOURCE", "ftp")
	am.Reset()

	_, err := newApp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.source")
}

func TestPrintStats(t *testing.T) {
	withDataDir(t)
	a, err := loadedApp(StatsCmd)
	require.NoError(t, err)
	defer a.close()

	var buf bytes.Buffer
	printStats(&buf, a.store.Statistics())
	out := buf.String()
	assert.Contains(t, out, "Customers: 2")
	assert.Contains(t, out, "Orders:    2")
	assert.Contains(t, out, "Products:  2")
}

func TestReportCommand(t *testing.T) {
	withDataDir(t)

	var buf bytes.Buffer
	ReportCmd.SetOut(&buf)
	defer ReportCmd.SetOut(nil)

	require.NoError(t, runReport(ReportCmd, []string{"customer_report"}))
	assert.Contains(t, buf.String(), "CUSTOMER")

	err := runReport(ReportCmd, []string{"weather"})
	require.Error(t, err)
}

func TestWriteConfigRedactsKey(t *testing.T) {
	cfg, err := am.Defaults()
	require.NoError(t, err)
	cfg.OpenRouter.APIKey = "sk-secret"

	for _, format := range []string{"toml", "json", "yaml"} {
		var buf bytes.Buffer
		require.NoError(t, writeConfig(&buf, cfg, format), format)
		assert.NotContains(t, buf.String(), "sk-secret", format)
		assert.Contains(t, buf.String(), "openai/gpt-4o-mini", format)
	}
	assert.Equal(t, "sk-secret", cfg.OpenRouter.APIKey, "caller's config is not modified")

	require.Error(t, writeConfig(&bytes.Buffer{}, cfg, "ini"))
}

func TestSortedCounts(t *testing.T) {
	got := sortedCounts(map[string]int{"Pending": 2, "Delivered": 5, "Cancelled": 2})
	assert.Equal(t, []string{"Delivered", "Cancelled", "Pending"}, got)
}

func TestVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	VersionCmd.SetOut(&buf)
	defer VersionCmd.SetOut(nil)
	require.NoError(t, VersionCmd.Flags().Set("json", "true"))
	defer VersionCmd.Flags().Set("json", "false")

	require.NoError(t, VersionCmd.RunE(VersionCmd, nil))

	var info version.Info
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, version.Get().Version, info.Version)
}
