package frame

// Version is the frame protocol version emitted in every response.
const Version = "vNext"

// Button action kinds.
const (
	ActionPost = "post"
	ActionLink = "link"
)

// AspectSquare is the 1:1 image aspect ratio used by every view.
const AspectSquare = "1:1"

// Response is the JSON body answered to the Farcaster client.
type Response struct {
	Frame Frame `json:"frame"`
}

// Frame describes one rendered frame: an image, the ordered button set, the
// URL the next button press posts to, and the encoded state token.
type Frame struct {
	Version   string   `json:"version"`
	Image     Image    `json:"image"`
	Buttons   []Button `json:"buttons"`
	PostURL   string   `json:"postUrl"`
	State     string   `json:"state"`
	InputText string   `json:"inputText,omitempty"`
}

// Image references the rendering endpoint, parameterized so the image can
// be regenerated independently and statelessly.
type Image struct {
	URL         string `json:"url"`
	AspectRatio string `json:"aspectRatio"`
}

// Button is one frame action.
type Button struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Target string `json:"target"`
}
