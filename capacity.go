package sso

// Reserve makes room for at least additional more bytes, growing by at
// least doubling. A Short String that cannot fit the request is promoted.
// It panics with *TryReserveError when the request cannot be satisfied.
func (s *String) Reserve(additional int) {
	if err := s.tryReserve(additional, false); err != nil {
		panic(err)
	}
}

// ReserveExact makes room for exactly additional more bytes.
func (s *String) ReserveExact(additional int) {
	if err := s.tryReserve(additional, true); err != nil {
		panic(err)
	}
}

// TryReserve is Reserve returning a *TryReserveError instead of panicking.
// On failure s is unchanged.
func (s *String) TryReserve(additional int) error {
	if err := s.tryReserve(additional, false); err != nil {
		return err
	}
	return nil
}

// TryReserveExact is ReserveExact returning a *TryReserveError.
func (s *String) TryReserveExact(additional int) error {
	if err := s.tryReserve(additional, true); err != nil {
		return err
	}
	return nil
}

func (s *String) tryReserve(additional int, exact bool) *TryReserveError {
	if s.c.short() {
		if additional >= 0 && additional <= s.inline().RemainingCapacity() {
			return nil
		}
		return s.tryPromote(additional, exact)
	}
	return s.heap().reserve(additional, exact)
}

// ShrinkTo lowers the capacity to max(minCapacity, Len). A Long String
// whose target capacity fits inline moves back to the Short state and
// releases its buffer.
func (s *String) ShrinkTo(minCapacity int) {
	if s.c.short() {
		return
	}
	h := s.heap()
	if max(minCapacity, h.Len()) <= MaxInline {
		s.demote()
		return
	}
	h.ShrinkTo(minCapacity)
}

// ShrinkToFit is ShrinkTo(0).
func (s *String) ShrinkToFit() { s.ShrinkTo(0) }
