package checkout

// Step is a position in the linear checkout sequence.
type Step int

const (
	StepAddress Step = iota + 1
	StepPayment
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "address"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	}
	return "unknown"
}

// Mode selects how the customer is identified on the order.
type Mode string

const (
	ModeAuthenticated Mode = "authenticated"
	ModeGuest         Mode = "guest"
)
