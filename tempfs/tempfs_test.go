package tempfs_test

import (
	"os"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/labdeviceproxy/tempfs"
)

func TestMkdirIsLazyAndStable(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	fs := tempfs.New()

	dir1, err := fs.Mkdir(0)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(dir1).NotTo(BeEmpty())

	dir1Again, err := fs.Mkdir(0)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(dir1Again).To(Equal(dir1))

	dir2, err := fs.Mkdir(1)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(dir2).NotTo(Equal(dir1))

	assert.Expect(fs.Cleanup()).To(Succeed())

	_, err = os.Stat(dir1)
	assert.Expect(os.IsNotExist(err)).To(BeTrue())
}

func TestJoinRejectsEscape(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	fs := tempfs.New()
	defer fs.Cleanup()

	_, err := fs.Join(0, "../escape.txt")
	assert.Expect(err).To(HaveOccurred())
}

func TestJoinAcceptsBasename(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	fs := tempfs.New()
	defer fs.Cleanup()

	path, err := fs.Join(0, "input.txt")
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(os.WriteFile(path, []byte("hi"), 0o644)).To(Succeed())
}

func TestCleanupWithoutMkdirIsNoop(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	fs := tempfs.New()
	assert.Expect(fs.Cleanup()).To(Succeed())
}
