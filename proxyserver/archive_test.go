package proxyserver_test

import (
	"context"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	. "github.com/onsi/gomega"

	"github.com/jtarchie/labdeviceproxy/orchestra/cache"
	_ "github.com/jtarchie/labdeviceproxy/orchestra/cache/s3"
	"github.com/jtarchie/labdeviceproxy/proxyserver"
	"github.com/jtarchie/labdeviceproxy/testhelpers"
)

// TestArchiveOutputsPersistsToS3 exercises the optional output
// archival path end to end against a real local MinIO, mirroring the
// teacher's own S3 cache integration test shape (start MinIO, run the
// real thing, list the bucket directly to see the archived object).
func TestArchiveOutputsPersistsToS3(t *testing.T) {
	if _, err := exec.LookPath("minio"); err != nil {
		t.Skip("minio not installed, skipping S3 archive integration test")
	}

	assert := NewGomegaWithT(t)

	minioSrv := testhelpers.StartMinIO(t)
	defer minioSrv.Stop()

	factory, ok := cache.GetCacheStore("s3")
	assert.Expect(ok).To(BeTrue())

	archiveStore, err := factory(minioSrv.CacheURL())
	assert.Expect(err).NotTo(HaveOccurred())

	bin := t.TempDir()
	toolPath := filepath.Join(bin, "idevicescreenshot")
	script := "#!/bin/sh\nset -e\nprintf 'screenshot-bytes-from-the-lab-device' > \"$1\"\necho ok\n"
	assert.Expect(os.WriteFile(toolPath, []byte(script), 0o755)).To(Succeed())

	handler := &proxyserver.Handler{
		IDevicePath: bin,
		Archive: proxyserver.ArchivePolicy{
			Store:    archiveStore,
			MinBytes: 1,
		},
	}

	srv := httptest.NewServer(handler)
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "shot.png")

	stdout, stderr, exitCode := runClient(t, srv.URL, []string{"idevicescreenshot", local})
	assert.Expect(stderr).To(BeEmpty())
	assert.Expect(exitCode).To(Equal(0))
	assert.Expect(stdout).To(Equal("ok\n"))

	_, err = os.Stat(local)
	assert.Expect(err).NotTo(HaveOccurred())

	s3Client := s3.NewFromConfig(mustAWSConfig(t), func(o *s3.Options) {
		o.BaseEndpoint = aws.String(minioSrv.Endpoint())
		o.UsePathStyle = true
		o.Region = "us-east-1"
	})

	objects, err := s3Client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket: aws.String(minioSrv.Bucket()),
	})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(objects.Contents).NotTo(BeEmpty(), "archived output should be visible in the bucket")
}

func mustAWSConfig(t *testing.T) aws.Config {
	t.Helper()

	assert := NewGomegaWithT(t)

	cfg, err := config.LoadDefaultConfig(context.Background())
	assert.Expect(err).NotTo(HaveOccurred())

	return cfg
}
