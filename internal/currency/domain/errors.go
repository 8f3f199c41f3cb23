package domain

import "errors"

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrPreferenceNotFound  = errors.New("currency preference not found")
	// ErrPreferenceForbidden means the store refused the preference write
	// (row-level security). The local currency change still stands.
	ErrPreferenceForbidden = errors.New("currency preference write not permitted")
	ErrInvalidRate         = errors.New("invalid exchange rate")
)
