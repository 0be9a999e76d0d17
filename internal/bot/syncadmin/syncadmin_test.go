package syncadmin

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackupMessage(t *testing.T) {
	msg := backupMessage("db_backup_20260102_150405.json", 5767168)

	assert.Contains(t, msg, "**📦 Database Backup**")
	assert.Contains(t, msg, "📄 **db_backup_20260102_150405.json** - Size: 5.50 MB")
}

func TestBackupMessageSmallFile(t *testing.T) {
	// Snapshots well below a megabyte still render with two decimals.
	msg := backupMessage("sync.json", 10240)

	assert.Contains(t, msg, "Size: 0.01 MB")
}

func TestSyncReport(t *testing.T) {
	report := syncReport(time.Now().Add(-2 * time.Hour))

	assert.True(t, strings.HasPrefix(report, "✅ Sync cycle completed. Previous sync was "))
	assert.Contains(t, report, "ago")
}

func TestSyncReportFirstCycle(t *testing.T) {
	assert.Equal(t,
		"✅ Sync cycle completed. This was the first sync on this host.",
		syncReport(time.Time{}))
}
