package pipeline

// GenericErrorMessage is shown for any failure the user cannot act on. The
// real cause stays in logs and telemetry.
const GenericErrorMessage = "Uh oh. Something went wrong... Please try again or contact us."

const (
	superheroRejectionMessage = "Sorry, we cannot generate a card with the added instructions. Please add relevant skills."
	holidayRejectionMessage   = "Sorry, we cannot generate a card with that message. Please enter an appropriate message"
	imageRequiredMessage      = "An uploaded image is required."
)

// ValidationError rejects a submission on content grounds. Its message is
// shown to the user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
