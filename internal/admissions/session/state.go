package session

type State int

const (
	StateEditing State = iota
	StateValidating
	StateSubmittingDraft
	StateDraftSaved
	StateSubmitError
	StateSubmittingFinal
	StateAlreadyPaid
	StatePaymentModalOpen
	StatePaymentSuccess
	StatePaymentCancelled
	StateRedirected
)

var stateNames = [...]string{
	StateEditing:          "editing",
	StateValidating:       "validating",
	StateSubmittingDraft:  "submitting_draft",
	StateDraftSaved:       "draft_saved",
	StateSubmitError:      "submit_error",
	StateSubmittingFinal:  "submitting_final",
	StateAlreadyPaid:      "already_paid",
	StatePaymentModalOpen: "payment_modal_open",
	StatePaymentSuccess:   "payment_success",
	StatePaymentCancelled: "payment_cancelled",
	StateRedirected:       "redirected",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// submitted reports whether the final submission has been settled and the
// draft is no longer edited.
func (s State) submitted() bool {
	switch s {
	case StateAlreadyPaid, StatePaymentSuccess, StateRedirected:
		return true
	}
	return false
}
