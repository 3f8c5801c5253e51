package argspec

// commands is the full allow-list: one entry per impersonated tool
// name, matching argv[0]'s basename exactly.
var commands = map[string]*node{
	"adb": {
		flags: []flagSpec{
			{names: []string{"-s"}, behavior: behaviorValue, kind: KindAndroidSerial},
		},
		subcommands: map[string]*node{
			"connect": {
				positionals: []positional{
					{name: "host", kind: KindString},
				},
			},
			"devices": {
				flags: []flagSpec{
					{names: []string{"-l"}, behavior: behaviorBool},
				},
			},
			"install": {
				flags: []flagSpec{
					{names: []string{"-r"}, behavior: behaviorBool},
					{names: []string{"-s"}, behavior: behaviorBool},
				},
				positionals: []positional{
					{name: "file", kind: KindInputFile},
				},
			},
			"logcat": {
				flags: []flagSpec{
					{names: []string{"-B"}, behavior: behaviorBool},
					{names: []string{"-b"}, behavior: behaviorValue, kind: KindString},
					{names: []string{"-c"}, behavior: behaviorBool},
					{names: []string{"-d"}, behavior: behaviorBool},
					{names: []string{"-f"}, behavior: behaviorValue, kind: KindString},
					{names: []string{"-g"}, behavior: behaviorBool},
					{names: []string{"-h"}, behavior: behaviorBool},
					{names: []string{"-n"}, behavior: behaviorValue, kind: KindInt},
					{names: []string{"-r"}, behavior: behaviorValue, kind: KindInt},
					{names: []string{"-s"}, behavior: behaviorBool},
					{names: []string{"-t"}, behavior: behaviorValue, kind: KindInt},
					{names: []string{"-v"}, behavior: behaviorValue, kind: KindString},
				},
				positionals: []positional{
					{name: "filterspecs", kind: KindString, remainder: true},
				},
			},
			"pull": {
				positionals: []positional{
					{name: "remote", kind: KindString},
					{name: "local", kind: KindOutputFile},
				},
			},
			"push": {
				positionals: []positional{
					{name: "local", kind: KindInputFile},
					{name: "remote", kind: KindString},
				},
			},
			"root": {},
			"shell": {
				positionals: []positional{
					{name: "arg0", kind: KindString},
					{name: "args", kind: KindString, remainder: true},
				},
			},
			"uninstall": {
				flags: []flagSpec{
					{names: []string{"-k"}, behavior: behaviorBool},
				},
				positionals: []positional{
					{name: "package", kind: KindString},
				},
			},
			"wait-for-device": {},
			"help":             {},
		},
	},

	"idevice-app-runner": {
		flags: []flagSpec{
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
			{names: []string{"-D"}, behavior: behaviorDParam},
			{names: []string{"-s", "--start"}, behavior: behaviorValue, kind: KindString},
			{names: []string{"--args"}, behavior: behaviorRemainder, kind: KindString},
		},
	},

	"idevice_id": {
		flags: []flagSpec{
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-l"}, behavior: behaviorBool},
		},
	},

	"idevicedate": {
		flags: []flagSpec{
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
		},
	},

	"idevicediagnostics": {
		flags: []flagSpec{
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
		},
		positionals: []positional{
			{name: "action", kind: KindEnum, choices: []string{"diagnostics"}},
			{name: "flag", kind: KindEnum, choices: []string{"All", "WiFi"}},
		},
	},

	"ideviceimagemounter": {
		flags: []flagSpec{
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-l"}, behavior: behaviorBool},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
		},
		positionals: []positional{
			{name: "image", kind: KindInputFile},
			{name: "signature", kind: KindInputFile},
		},
	},

	"ideviceinfo": {
		flags: []flagSpec{
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-k"}, behavior: behaviorValue, kind: KindString},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
			{names: []string{"-q"}, behavior: behaviorValue, kind: KindString},
			{names: []string{"-s"}, behavior: behaviorBool},
			{names: []string{"-x"}, behavior: behaviorBool},
		},
	},

	"ideviceinstaller": {
		flags: []flagSpec{
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-i"}, behavior: behaviorValue, kind: KindInputFile},
			{names: []string{"-l", "--list", "--list-apps"}, behavior: behaviorBool},
			{names: []string{"-o"}, behavior: behaviorValue, kind: KindString},
			{names: []string{"-U"}, behavior: behaviorValue, kind: KindString},
		},
	},

	"idevicefs": {
		flags: []flagSpec{
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
		},
		subcommands: map[string]*node{
			"help": {},
			"ls": {
				flags: []flagSpec{
					{names: []string{"-F"}, behavior: behaviorBool},
					{names: []string{"-R"}, behavior: behaviorBool},
					{names: []string{"-l"}, behavior: behaviorBool},
				},
				positionals: []positional{
					{name: "remote", kind: KindString, optional: true},
				},
			},
			"pull": {
				positionals: []positional{
					{name: "remote", kind: KindString},
					{name: "local", kind: KindOutputFile},
				},
			},
			"push": {
				positionals: []positional{
					{name: "local", kind: KindInputFile},
					{name: "remote", kind: KindString, optional: true},
				},
			},
			"rm": {
				flags: []flagSpec{
					{names: []string{"-d"}, behavior: behaviorBool},
					{names: []string{"-f"}, behavior: behaviorBool},
					{names: []string{"-R"}, behavior: behaviorBool},
				},
				positionals: []positional{
					{name: "remote", kind: KindString},
				},
			},
		},
	},

	"idevicescreenshot": {
		flags: []flagSpec{
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
		},
		positionals: []positional{
			{name: "local", kind: KindOutputFile},
		},
	},

	"idevicesyslog": {
		flags: []flagSpec{
			{names: []string{"-d"}, behavior: behaviorBool},
			{names: []string{"-h"}, behavior: behaviorBool},
			{names: []string{"-u"}, behavior: behaviorValue, kind: KindIOSUDID},
		},
	},
}
