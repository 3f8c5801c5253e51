package audit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/labdeviceproxy/audit"
)

func TestStoreRecordAndRecent(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dsn := filepath.Join(t.TempDir(), "audit.db")

	store, err := audit.Open(dsn)
	assert.Expect(err).NotTo(HaveOccurred())
	defer store.Close()

	ctx := context.Background()

	err = store.Record(ctx, audit.Entry{
		Command:   "adb",
		Argv:      "adb devices -l",
		ExitCode:  0,
		HadExit:   true,
		Stdout:    "\x1b[32m*mock*List of devices.\x1b[0m\n",
		StartedAt: time.Now(),
	})
	assert.Expect(err).NotTo(HaveOccurred())

	entries, err := store.Recent(ctx, 10)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(entries).To(HaveLen(1))
	assert.Expect(entries[0].Command).To(Equal("adb"))
	assert.Expect(entries[0].Stdout).To(Equal("*mock*List of devices.\n"))
	assert.Expect(entries[0].ID).NotTo(BeEmpty())
}

func TestStoreRecentRespectsLimit(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	dsn := filepath.Join(t.TempDir(), "audit.db")

	store, err := audit.Open(dsn)
	assert.Expect(err).NotTo(HaveOccurred())
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err = store.Record(ctx, audit.Entry{
			Command:   "adb",
			Argv:      "adb root",
			StartedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
		assert.Expect(err).NotTo(HaveOccurred())
	}

	entries, err := store.Recent(ctx, 2)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(entries).To(HaveLen(2))
}
