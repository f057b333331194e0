package summary

// SystemPrompt is the fixed system role sent with every request.
const SystemPrompt = "You are a helpful assistant."

const lineFormat = "Write the summary as lines in the format `START - END: <<summary>>`, " +
	"where START and END are timestamps taken from the transcript."

// The character targets are instructions to the model only. Replies that
// exceed them are delivered as is.
var templates = map[Granularity]string{
	Short: "Provide a concise summary of the following transcript. Include only the most critical " +
		"information in a few sentences. " + lineFormat + " Ensure the summary does not exceed 200 characters.",
	Medium: "Provide a moderately detailed summary of the following transcript. Cover the main points and " +
		"include essential context in a few paragraphs. " + lineFormat +
		" Ensure the summary does not exceed 800 characters.",
	Long: "Provide a detailed summary of the following transcript. Include all key points, detailed " +
		"explanations, and context to give a comprehensive understanding of the content. " + lineFormat +
		" Ensure the summary does not exceed 1800 characters.",
}

// Template returns the instruction template for g.
func Template(g Granularity) (string, bool) {
	t, ok := templates[g]
	return t, ok
}

// BuildPrompt joins the template for g and the transcript text.
func BuildPrompt(g Granularity, text string) (string, bool) {
	t, ok := Template(g)
	if !ok {
		return "", false
	}
	return t + "\n\n" + text, true
}
