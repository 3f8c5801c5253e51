package argspec_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/jtarchie/labdeviceproxy/argspec"
)

func TestParseAdbDevices(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"adb", "devices", "-l"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "adb"},
		{Index: 1, Kind: argspec.Scalar, Text: "devices"},
		{Index: 2, Kind: argspec.Scalar, Text: "-l"},
	}))
}

func TestParseAdbPush(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"adb", "push", "local.txt", "/sdcard/remote.txt"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "adb"},
		{Index: 1, Kind: argspec.Scalar, Text: "push"},
		{Index: 2, Kind: argspec.InputFile, Text: "local.txt"},
		{Index: 3, Kind: argspec.Scalar, Text: "/sdcard/remote.txt"},
	}))
}

func TestParseAdbPull(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"adb", "pull", "/sdcard/remote.txt", "local.txt"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params[3]).To(Equal(argspec.Param{Index: 3, Kind: argspec.OutputFile, Text: "local.txt"}))
}

func TestParseAdbWithSerialFlag(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"adb", "-s", "ABC123", "root"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "adb"},
		{Index: 1, Kind: argspec.Scalar, Text: "-s"},
		{Index: 2, Kind: argspec.Scalar, Text: "ABC123"},
		{Index: 3, Kind: argspec.Scalar, Text: "root"},
	}))
}

func TestParseAdbShellRemainder(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"adb", "shell", "ls", "-la", "/sdcard"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "adb"},
		{Index: 1, Kind: argspec.Scalar, Text: "shell"},
		{Index: 2, Kind: argspec.Scalar, Text: "ls"},
		{Index: 3, Kind: argspec.Scalar, Text: "-la"},
		{Index: 4, Kind: argspec.Scalar, Text: "/sdcard"},
	}))
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	_, err := argspec.Parse([]string{"adb", "blah"})
	assert.Expect(err).To(MatchError(argspec.ErrSyntax))
}

func TestParseRejectsBadAndroidSerial(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	_, err := argspec.Parse([]string{"adb", "-s", "has space", "root"})
	assert.Expect(err).To(MatchError(argspec.ErrSyntax))
}

func TestParseIdeviceAppRunnerDParam(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"idevice-app-runner", "-D", "x=y", "-D", "a=b"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "idevice-app-runner"},
		{Index: 1, Kind: argspec.Scalar, Text: "-Dx=y"},
		{Index: 2, Kind: argspec.Scalar, Text: "-Da=b"},
	}))
}

func TestParseIdeviceAppRunnerDParamServerReparse(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	// Mirrors what the server does in Phase 2: reconstruct argv from the
	// scalar values the client actually put on the wire (the folded
	// "-Dx=y" token, not the original split "-D x=y") and re-run Parse
	// against it. This must succeed, or every "-D" invocation is
	// rejected with a false HTTP 403.
	params, err := argspec.Parse([]string{"idevice-app-runner", "-Dx=y"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "idevice-app-runner"},
		{Index: 1, Kind: argspec.Scalar, Text: "-Dx=y"},
	}))
}

func TestParseIdeviceAppRunnerArgsRemainder(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{
		"idevice-app-runner", "-s", "com.example.App", "--args", "--verbose", "foo",
	})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "idevice-app-runner"},
		{Index: 1, Kind: argspec.Scalar, Text: "-s"},
		{Index: 2, Kind: argspec.Scalar, Text: "com.example.App"},
		{Index: 3, Kind: argspec.Scalar, Text: "--args"},
		{Index: 4, Kind: argspec.Scalar, Text: "--verbose"},
		{Index: 5, Kind: argspec.Scalar, Text: "foo"},
	}))
}

func TestParseIdeviceInstallerMultipleSpellingsEchoLiteral(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"ideviceinstaller", "--list-apps"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params[1].Text).To(Equal("--list-apps"))
}

func TestParseIdevicefsLsOptionalRemote(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"idevicefs", "ls", "-l"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(Equal([]argspec.Param{
		{Index: 0, Kind: argspec.Scalar, Text: "idevicefs"},
		{Index: 1, Kind: argspec.Scalar, Text: "ls"},
		{Index: 2, Kind: argspec.Scalar, Text: "-l"},
	}))
}

func TestParseIdeviceDiagnostics(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	params, err := argspec.Parse([]string{"idevicediagnostics", "diagnostics", "WiFi"})
	assert.Expect(err).NotTo(HaveOccurred())
	assert.Expect(params).To(HaveLen(3))

	_, err = argspec.Parse([]string{"idevicediagnostics", "diagnostics", "Bogus"})
	assert.Expect(err).To(MatchError(argspec.ErrSyntax))
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	t.Parallel()

	assert := NewGomegaWithT(t)

	_, err := argspec.Parse([]string{"rm", "-rf", "/"})
	assert.Expect(err).To(MatchError(argspec.ErrSyntax))
}
