// Package argspec implements the fixed allow-list grammar for the
// device tool families this proxy impersonates (adb, idevice*). Both
// the client, to build a parameter list from argv before any network
// I/O, and the server, to re-validate a reconstructed argument list
// before spawning the real tool, parse against the exact same tables
// in this package.
package argspec

import "strings"

// Kind is the value type a flag or positional carries.
type Kind int

const (
	// KindFlag marks a boolean switch; it never consumes a value token.
	KindFlag Kind = iota
	KindString
	KindInt
	KindEnum
	KindInputFile
	KindOutputFile
	KindAndroidSerial
	KindIOSUDID
)

// ParamKind classifies a parsed Param for staging purposes.
type ParamKind int

const (
	Scalar ParamKind = iota
	InputFile
	OutputFile
)

func (k ParamKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case InputFile:
		return "input-file"
	case OutputFile:
		return "output-file"
	default:
		return "unknown"
	}
}

// Param is one entry of the flat, ordered parameter list a Parse call
// produces. Text is the literal token for scalars and flag echoes, or
// the local path argument for file-typed entries.
type Param struct {
	Index int
	Kind  ParamKind
	Text  string
}

// flagBehavior distinguishes the handful of token-consumption shapes
// the grammar needs beyond a plain boolean switch or a single value.
type flagBehavior int

const (
	behaviorBool flagBehavior = iota
	behaviorValue
	// behaviorDParam is idevice-app-runner's "-D x=y" form: it consumes
	// exactly one following token and emits a single scalar parameter
	// with the flag and value concatenated, with no space.
	behaviorDParam
	// behaviorRemainder is idevice-app-runner's "--args" form: the flag
	// token is emitted, then every remaining token becomes its own
	// scalar parameter and parsing of the node stops.
	behaviorRemainder
)

// flagSpec is one allow-listed flag, possibly under several accepted
// spellings (e.g. "-l", "--list", "--list-apps" all set the same
// switch). Whichever spelling the caller used is echoed verbatim.
type flagSpec struct {
	names    []string
	behavior flagBehavior
	kind     Kind
	choices  []string
}

// matches accepts both a behaviorDParam flag's split spelling ("-D",
// consuming the next token as its value) and its concatenated
// short-option spelling ("-Dx=y"), since that is the single-token form
// the client emits on the wire and the server must accept when it
// re-parses the reconstructed argv (spec.md §4.3's "-D" normalization).
func (f flagSpec) matches(tok string) bool {
	for _, name := range f.names {
		if name == tok {
			return true
		}

		if f.behavior == behaviorDParam && strings.HasPrefix(tok, name) && len(tok) > len(name) {
			return true
		}
	}

	return false
}

// positional is one allow-listed positional argument.
type positional struct {
	name      string
	kind      Kind
	choices   []string
	optional  bool
	remainder bool
}

// node is one (sub)command's grammar: its flags, then either a
// positional list or a further subcommand dispatch table. The two are
// mutually exclusive in every command this proxy allow-lists.
type node struct {
	flags       []flagSpec
	positionals []positional
	subcommands map[string]*node
}
