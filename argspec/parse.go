package argspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every grammar violation Parse returns: an
// unknown command, an unrecognized flag, a missing or extra
// positional, or a failed enum/device-id check. The server maps it to
// HTTP 403; the client reports it and exits non-zero before any
// network I/O.
var ErrSyntax = errors.New("argspec: syntax error")

// Parse classifies argv against the allow-list grammar and returns
// the flat, ordered parameter list the wire protocol transmits. argv
// includes the impersonated command name itself as argv[0]; it is
// emitted as the first parameter, exactly as every other command or
// subcommand token is.
func Parse(argv []string) ([]Param, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty argument list", ErrSyntax)
	}

	top, ok := commands[argv[0]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", ErrSyntax, argv[0])
	}

	params := []Param{{Index: 0, Kind: Scalar, Text: argv[0]}}

	rest, err := parseNode(top, argv[1:], &params)
	if err != nil {
		return nil, err
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: unexpected extra arguments %v", ErrSyntax, rest)
	}

	return params, nil
}

func appendParam(params *[]Param, kind ParamKind, text string) {
	*params = append(*params, Param{Index: len(*params), Kind: kind, Text: text})
}

func paramKindFor(kind Kind) ParamKind {
	switch kind {
	case KindInputFile:
		return InputFile
	case KindOutputFile:
		return OutputFile
	default:
		return Scalar
	}
}

func parseNode(n *node, tokens []string, params *[]Param) ([]string, error) {
	tokens, err := parseFlags(n, tokens, params)
	if err != nil {
		return nil, err
	}

	if n.subcommands != nil {
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: missing subcommand", ErrSyntax)
		}

		sub, ok := n.subcommands[tokens[0]]
		if !ok {
			return nil, fmt.Errorf("%w: unknown subcommand %q", ErrSyntax, tokens[0])
		}

		appendParam(params, Scalar, tokens[0])

		return parseNode(sub, tokens[1:], params)
	}

	return parsePositionals(n.positionals, tokens, params)
}

func parseFlags(n *node, tokens []string, params *[]Param) ([]string, error) {
	for len(tokens) > 0 && strings.HasPrefix(tokens[0], "-") {
		tok := tokens[0]

		flag, ok := matchFlag(n.flags, tok)
		if !ok {
			return nil, fmt.Errorf("%w: unrecognized flag %q", ErrSyntax, tok)
		}

		tokens = tokens[1:]

		switch flag.behavior {
		case behaviorBool:
			appendParam(params, Scalar, tok)

		case behaviorValue:
			appendParam(params, Scalar, tok)

			if len(tokens) == 0 {
				return nil, fmt.Errorf("%w: flag %q requires a value", ErrSyntax, tok)
			}

			value := tokens[0]
			tokens = tokens[1:]

			if err := validateValue(flag.kind, flag.choices, value); err != nil {
				return nil, err
			}

			appendParam(params, paramKindFor(flag.kind), value)

		case behaviorDParam:
			if !isExactName(flag.names, tok) {
				// already the concatenated "-Dx=y" form: the server sees
				// this on re-parse of the argv it reconstructed from the
				// wire, where the client already folded "-D x=y" into one
				// token. It carries its own value; nothing more to consume.
				appendParam(params, Scalar, tok)

				continue
			}

			if len(tokens) == 0 {
				return nil, fmt.Errorf("%w: flag %q requires a value", ErrSyntax, tok)
			}

			value := tokens[0]
			tokens = tokens[1:]

			appendParam(params, Scalar, tok+value)

		case behaviorRemainder:
			appendParam(params, Scalar, tok)

			for _, rest := range tokens {
				appendParam(params, Scalar, rest)
			}

			return nil, nil
		}
	}

	return tokens, nil
}

func parsePositionals(positionals []positional, tokens []string, params *[]Param) ([]string, error) {
	for _, p := range positionals {
		if p.remainder {
			for _, tok := range tokens {
				appendParam(params, Scalar, tok)
			}

			return nil, nil
		}

		if len(tokens) == 0 {
			if p.optional {
				continue
			}

			return nil, fmt.Errorf("%w: missing required argument %q", ErrSyntax, p.name)
		}

		value := tokens[0]
		tokens = tokens[1:]

		if err := validateValue(p.kind, p.choices, value); err != nil {
			return nil, err
		}

		appendParam(params, paramKindFor(p.kind), value)
	}

	return tokens, nil
}

func isExactName(names []string, tok string) bool {
	for _, name := range names {
		if name == tok {
			return true
		}
	}

	return false
}

func matchFlag(flags []flagSpec, tok string) (flagSpec, bool) {
	for _, f := range flags {
		if f.matches(tok) {
			return f, true
		}
	}

	return flagSpec{}, false
}

func validateValue(kind Kind, choices []string, value string) error {
	switch kind {
	case KindInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrSyntax, value)
		}
	case KindEnum:
		for _, choice := range choices {
			if choice == value {
				return nil
			}
		}

		return fmt.Errorf("%w: %q is not one of %v", ErrSyntax, value, choices)
	case KindAndroidSerial:
		if !ValidAndroidSerial(value) {
			return fmt.Errorf("%w: %q is not a valid android serial", ErrSyntax, value)
		}
	case KindIOSUDID:
		if !ValidIOSUDID(value) {
			return fmt.Errorf("%w: %q is not a valid ios udid", ErrSyntax, value)
		}
	}

	return nil
}
