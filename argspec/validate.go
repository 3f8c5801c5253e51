package argspec

import "regexp"

var (
	androidSerialPattern = regexp.MustCompile(`^\S+$`)
	iosUDIDPattern       = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// ValidAndroidSerial reports whether s is a legal adb device serial.
func ValidAndroidSerial(s string) bool {
	return androidSerialPattern.MatchString(s)
}

// ValidIOSUDID reports whether s is a legal idevice* UDID.
func ValidIOSUDID(s string) bool {
	return iosUDIDPattern.MatchString(s)
}
