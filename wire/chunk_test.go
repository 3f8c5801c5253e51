package wire_test

import (
	"archive/tar"
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	. "github.com/onsi/gomega"

	"github.com/jtarchie/labdeviceproxy/wire"
)

func TestHeaderFormatAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	header := wire.Header{
		ID:     "stdout",
		Out:    "1",
		IsTar:  true,
		Len:    5,
	}

	line := header.Format()
	assert.Expect(line).To(Equal("5;id=stdout,is_tar=true,out=1\r\n"))

	parsed, err := wire.ParseHeader(line)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(parsed).To(Equal(header))
}

func TestParseHeaderDropsUnknownKeys(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	parsed, err := wire.ParseHeader("a;id=arg0,bogus=ignored\r\n")
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(parsed.ID).To(Equal("arg0"))
	assert.Expect(parsed.Len).To(Equal(10))
}

func TestFormatAlwaysHasSemicolon(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	header := wire.Header{Len: 0}
	assert.Expect(header.Format()).To(Equal("0;\r\n"))
}

func TestWriteChunkForcesIsEmptyOnEmptyPayload(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	var buf bytes.Buffer

	err := wire.WriteChunk(&buf, wire.Header{ID: "stdin", IsAbsent: true}, nil)
	assert.Expect(err).NotTo(HaveOccurred())

	reader := bufio.NewReader(&buf)

	header, payload, err := wire.ReadChunk(reader)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(header.IsEmpty).To(BeTrue())
	assert.Expect(header.IsAbsent).To(BeTrue())
	assert.Expect(payload).To(Equal([]byte("-")))
}

func TestWriteChunkThenEndRoundTrips(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	var buf bytes.Buffer

	assert.Expect(wire.WriteChunk(&buf, wire.NewHeader("arg0"), []byte("adb"))).To(Succeed())
	assert.Expect(wire.WriteEnd(&buf)).To(Succeed())

	reader := bufio.NewReader(&buf)

	header, payload, err := wire.ReadChunk(reader)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(header.ID).To(Equal("arg0"))
	assert.Expect(payload).To(Equal([]byte("adb")))

	header, payload, err = wire.ReadChunk(reader)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(header.Len).To(Equal(0))
	assert.Expect(payload).To(BeNil())
}

func TestChunkWriterSkipsEmptyWrites(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	var buf bytes.Buffer

	writer := &wire.ChunkWriter{Header: wire.NewHeader("stdout"), W: &buf}

	n, err := writer.Write(nil)
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(n).To(Equal(0))
	assert.Expect(buf.Len()).To(Equal(0))

	n, err = writer.Write([]byte("hello"))
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(n).To(Equal(5))
	assert.Expect(buf.Len()).To(BeNumerically(">", 0))
}

func TestSendTarAndReceiveTarRoundTrip(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	src := t.TempDir()
	assert.Expect(os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644)).To(Succeed())
	assert.Expect(os.Mkdir(filepath.Join(src, "sub"), 0o755)).To(Succeed())
	assert.Expect(os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("world"), 0o644)).To(Succeed())

	var buf bytes.Buffer
	assert.Expect(wire.SendTar(&buf, wire.NewHeader("out1"), src, "payload")).To(Succeed())

	dest := t.TempDir()
	writer, errCh := wire.ReceiveTar(dest)

	reader := bufio.NewReader(&buf)
	for {
		header, payload, err := wire.ReadChunk(reader)
		assert.Expect(err).NotTo(HaveOccurred())

		if header.Len == 0 {
			break
		}

		_, err = writer.Write(payload)
		assert.Expect(err).NotTo(HaveOccurred())
	}

	assert.Expect(writer.Close()).To(Succeed())
	assert.Expect(<-errCh).NotTo(HaveOccurred())

	got, err := os.ReadFile(filepath.Join(dest, "payload", "a.txt"))
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(got).To(Equal([]byte("hello")))

	got, err = os.ReadFile(filepath.Join(dest, "payload", "sub", "b.txt"))
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(got).To(Equal([]byte("world")))
}

func TestReceiveTarRejectsPathEscape(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	assert.Expect(tw.WriteHeader(&tar.Header{
		Name:     "../../evil.txt",
		Mode:     0o644,
		Size:     4,
		Typeflag: tar.TypeReg,
	})).To(Succeed())
	_, err := tw.Write([]byte("evil"))
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(tw.Close()).To(Succeed())
	assert.Expect(gz.Close()).To(Succeed())

	dest := t.TempDir()
	writer, errCh := wire.ReceiveTar(dest)

	_, err = writer.Write(buf.Bytes())
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(writer.Close()).To(Succeed())

	err = <-errCh
	assert.Expect(err).To(HaveOccurred())
}
