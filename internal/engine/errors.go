package engine

import "errors"

var (
	ErrGuestNotFound   = errors.New("guest not found")
	ErrMemoryNotFound  = errors.New("memory not found")
	ErrAlreadyClaimed  = errors.New("memory has already been claimed")
	ErrCapacity        = errors.New("carrying too many memories")
	ErrValidation      = errors.New("invalid action")
	ErrHotelClosed     = errors.New("hotel is not open")
	ErrHotelOpen       = errors.New("hotel is already open")
	ErrNotFinished     = errors.New("hotel hasn't finished yet")
	ErrHotelFull       = errors.New("hotel is at capacity")
	ErrPaymentRejected = errors.New("payment verification failed")
	ErrTxReused        = errors.New("transaction hash already used")
	ErrWalletActive    = errors.New("wallet already has an active guest")
	ErrCheckedOut      = errors.New("guest has already checked out")
)

// IsClientError reports whether err comes from a bad request rather than a
// server fault.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrGuestNotFound, ErrMemoryNotFound, ErrAlreadyClaimed, ErrCapacity, ErrValidation,
		ErrHotelClosed, ErrHotelOpen, ErrNotFinished, ErrHotelFull, ErrPaymentRejected,
		ErrTxReused, ErrWalletActive, ErrCheckedOut,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
