package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitWritesToConfiguredFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		InfoLogPath:  filepath.Join(dir, "info.log"),
		ErrorLogPath: filepath.Join(dir, "error.log"),
		Level:        "debug",
	}
	assert.NoError(t, Init(cfg))
	Infof("hello %s", "world")
	Errorf("boom %d", 1)

	assert.FileExists(t, cfg.InfoLogPath)
	assert.FileExists(t, cfg.ErrorLogPath)
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, parseLevel("not-a-level").String(), parseLevel("info").String())
}

func TestInitIsSafeToCallRepeatedly(t *testing.T) {
	assert.NoError(t, Init(Config{Level: "warn"}))
	assert.NoError(t, Init(Config{Level: "debug"}))
	Debugf("still works")
}

func TestFieldVariantsRenderComponentAndTableTags(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		InfoLogPath:  filepath.Join(dir, "info.log"),
		ErrorLogPath: filepath.Join(dir, "error.log"),
		Level:        "debug",
	}
	assert.NoError(t, Init(cfg))

	InfoFields(logrus.Fields{"component": "db", "tables": 3}, "opened")
	WarnFields(logrus.Fields{"component": "bufferpool", "table": "grades", "pageIdx": 2}, "corrupted page file: %v", assert.AnError)
	ErrorFields(logrus.Fields{"component": "txn", "txnID": uint64(7)}, "recovered panic: %v", "boom")

	info, err := os.ReadFile(cfg.InfoLogPath)
	assert.NoError(t, err)
	assert.Contains(t, string(info), "component=db")
	assert.Contains(t, string(info), "tables=3")

	errs, err := os.ReadFile(cfg.ErrorLogPath)
	assert.NoError(t, err)
	assert.Contains(t, string(errs), "component=txn")
	assert.Contains(t, string(errs), "txnID=7")
}
