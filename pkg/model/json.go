package model

import "fmt"

// Principal and resource kinds serialize as their statement tokens so the
// snapshot document stays readable and stable across enum reordering.

// MarshalText encodes the principal kind as its statement token.
func (k PrincipalKind) MarshalText() ([]byte, error) {
	if k < PrincipalUser || k > PrincipalTagged {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPrincipalKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a statement token into the principal kind.
func (k *PrincipalKind) UnmarshalText(text []byte) error {
	for candidate := PrincipalUser; candidate <= PrincipalTagged; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPrincipalKind, text)
}

// MarshalText encodes the resource kind as its statement token.
func (k ResourceKind) MarshalText() ([]byte, error) {
	if k < ResourceDatabase || k > ResourceTagged {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResourceKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a statement token into the resource kind.
func (k *ResourceKind) UnmarshalText(text []byte) error {
	for candidate := ResourceDatabase; candidate <= ResourceTagged; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownResourceKind, text)
}
