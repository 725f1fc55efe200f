package providers

import "fmt"

// ValidateChat checks the shape of a chat call before any upstream work is
// done. It returns a *ValidationError describing the first problem found.
func ValidateChat(messages []Message, opts ChatOptions) error {
	if opts.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(messages) == 0 {
		return &ValidationError{Field: "messages", Message: "at least one message is required"}
	}

	for i, msg := range messages {
		switch msg.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported role %q", msg.Role),
			}
		}

		for j, part := range msg.Parts {
			if err := validatePart(part); err != "" {
				return &ValidationError{
					Field:   fmt.Sprintf("messages[%d].content[%d]", i, j),
					Message: err,
				}
			}
		}
	}

	if opts.Temperature != nil && (*opts.Temperature < 0 || *opts.Temperature > 2) {
		return &ValidationError{Field: "temperature", Message: "must be between 0 and 2"}
	}
	if opts.MaxTokens < 0 {
		return &ValidationError{Field: "max_tokens", Message: "must not be negative"}
	}

	return nil
}

func validatePart(p ContentPart) string {
	switch p.Type {
	case PartTypeText:
		return ""
	case PartTypeImageURL:
		if p.ImageURL == nil || p.ImageURL.URL == "" {
			return "image part requires a url"
		}
	case PartTypeInputAudio:
		if p.InputAudio == nil || p.InputAudio.Data == "" {
			return "audio part requires data"
		}
	default:
		return fmt.Sprintf("unsupported content part type %q", p.Type)
	}
	return ""
}
