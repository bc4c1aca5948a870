package assistant

import (
	"strings"

	"visionchat/internal/models"
)

type ImagePolicy int

const (
	ImageOptional ImagePolicy = iota
	ImageRequired
	ImageNone
)

// Profile describes one of the hosted apps: its page copy, the instruction
// sent with every request and which inputs it requires.
type Profile struct {
	Name          string
	Title         string
	Icon          string
	Subheading    string
	PromptLabel   string
	Placeholder   string
	UploadLabel   string
	SubmitLabel   string
	ResultHeading string
	Spinner       string
	Instruction   string
	Warning       string
	Image         ImagePolicy
	RequireText   bool
	History       bool
	Streaming     bool
}

const healthInstruction = `You are an expert nutritionist. Look at the food items in the image and calculate the total calories.
Also, provide details of each food item with its calorie intake in the following format:

1. Item 1 - number of calories
2. Item 2 - number of calories
----
----`

const invoiceInstruction = `You are an expert in understanding invoices. We will upload an image of an invoice,
and you need to answer questions based on that.`

var profiles = []Profile{
	{
		Name:          "vision",
		Title:         "Gemini Image and Q&A Chatbot",
		Icon:          "📷",
		Subheading:    "Upload an image and ask Gemini for details!",
		PromptLabel:   "Input Prompt:",
		Placeholder:   "Describe the image or ask a question...",
		UploadLabel:   "Choose an image...",
		SubmitLabel:   "Analyze Image & Prompt",
		ResultHeading: "Gemini's Response",
		Spinner:       "Processing...",
		Warning:       "Please provide either an image or a text prompt.",
		Image:         ImageOptional,
	},
	{
		Name:          "health",
		Title:         "Gemini Health App",
		Icon:          "🍎",
		Subheading:    "Upload a food image and get calorie information!",
		PromptLabel:   "Input Prompt:",
		Placeholder:   "Describe the image or ask a question...",
		UploadLabel:   "Choose an image...",
		SubmitLabel:   "Tell me the total calories",
		ResultHeading: "Calorie Analysis",
		Spinner:       "Analyzing image...",
		Instruction:   healthInstruction,
		Warning:       "Please upload an image!",
		Image:         ImageRequired,
	},
	{
		Name:          "invoice",
		Title:         "Gemini Invoice App",
		Icon:          "📄",
		Subheading:    "Upload an invoice image and ask questions!",
		PromptLabel:   "Input Prompt:",
		Placeholder:   "Describe the invoice or ask a question...",
		UploadLabel:   "Choose the invoice to upload",
		SubmitLabel:   "Tell me the details of the invoice",
		ResultHeading: "Invoice Analysis",
		Spinner:       "Analyzing invoice...",
		Instruction:   invoiceInstruction,
		Warning:       "Please upload an image!",
		Image:         ImageRequired,
		History:       true,
	},
	{
		Name:          "chat",
		Title:         "Gemini AI Chat",
		Icon:          "🤖",
		PromptLabel:   "Enter your question:",
		SubmitLabel:   "Ask Gemini",
		ResultHeading: "Gemini Response",
		Spinner:       "Thinking...",
		Warning:       "Please enter a question!",
		Image:         ImageNone,
		RequireText:   true,
		History:       true,
		Streaming:     true,
	},
}

// Lookup returns the profile registered under name. Names match exactly;
// they double as route segments and cookie suffixes.
func Lookup(name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Profiles lists all profiles in display order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

func (p Profile) AcceptsImages() bool {
	return p.Image != ImageNone
}

// Validate checks a submission before any model call is made. Failures are
// returned as *Warning.
func (p Profile) Validate(in Input) error {
	hasText := strings.TrimSpace(in.Text) != ""
	hasImage := !in.Image.Empty()

	if hasImage {
		if p.Image == ImageNone {
			return &Warning{Message: "This app does not accept images.", Err: ErrImageNotAccepted}
		}
		switch in.Image.MIMEType {
		case models.MimeJPEG, models.MimePNG:
		default:
			return &Warning{Message: "Only JPG and PNG images are supported.", Err: ErrUnsupportedImage}
		}
	}
	if !hasText && !hasImage {
		return &Warning{Message: p.Warning, Err: ErrEmptySubmission}
	}
	if p.Image == ImageRequired && !hasImage {
		return &Warning{Message: p.Warning, Err: ErrImageRequired}
	}
	if p.RequireText && !hasText {
		return &Warning{Message: p.Warning, Err: ErrEmptySubmission}
	}
	return nil
}
