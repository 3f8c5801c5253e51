package proxyserver

import (
	"fmt"

	"github.com/jtarchie/labdeviceproxy/argspec"
)

// validate re-runs the allow-list grammar on the reconstructed
// parameter values (Phase 2). It never trusts the client's own
// classification of a parameter: every input/output file the client
// staged must correspond to a grammar-predicted input/output position,
// and vice versa.
func validate(params []*param) error {
	values := make([]string, len(params))
	for i, p := range params {
		values[i] = p.Value
	}

	parsed, err := argspec.Parse(values)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	if len(parsed) != len(params) {
		return fmt.Errorf("%w: grammar produced %d parameters, client sent %d", ErrForbidden, len(parsed), len(params))
	}

	for i, p := range params {
		wantIn := parsed[i].Kind == argspec.InputFile
		wantOut := parsed[i].Kind == argspec.OutputFile
		gotIn := p.Header.In != ""
		gotOut := p.OutDir != ""

		if wantIn != gotIn {
			return fmt.Errorf("%w: arg[%d] input-file mismatch", ErrForbidden, i)
		}

		if wantOut != gotOut {
			return fmt.Errorf("%w: arg[%d] output-file mismatch", ErrForbidden, i)
		}
	}

	return nil
}
