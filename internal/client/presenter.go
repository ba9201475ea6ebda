package client

import "strings"

// Presentation holds the fixed display content for one classification label.
type Presentation struct {
	Title          string
	Message        string
	Recommendation string
	Color          string
}

var (
	presentationAD = Presentation{
		Title:          "Alzheimer's Indicators Detected",
		Message:        "The speech analysis found patterns associated with Alzheimer's disease.",
		Recommendation: "This screening is not a diagnosis. Please consult a healthcare professional for a full assessment.",
		Color:          "#D32F2F",
	}
	presentationHC = Presentation{
		Title:          "No Alzheimer's Indicators",
		Message:        "The speech analysis did not find patterns associated with Alzheimer's disease.",
		Recommendation: "Keep up regular checkups. Repeat the screening if you notice changes in memory or speech.",
		Color:          "#2E7D32",
	}
	presentationUnknown = Presentation{
		Title:          "Result Unavailable",
		Message:        "The analysis did not return a recognizable result.",
		Recommendation: "Please try the screening again. If the problem persists, consult a healthcare professional.",
		Color:          "#000000",
	}
)

// Present maps a classification label to its display content. Unrecognized
// labels render as the unknown tuple, never as an error.
func Present(label string) Presentation {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "AD", "ALZHEIMER'S DISEASE", "ALZHEIMER'S DETECTED":
		return presentationAD
	case "HC", "HEALTHY CONTROL", "HEALTHY":
		return presentationHC
	default:
		return presentationUnknown
	}
}
