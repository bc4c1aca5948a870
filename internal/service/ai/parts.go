package ai

import "visionchat/internal/models"

// BuildParts assembles the ordered request payload:
// [...history, instruction, text, image]. Empty instruction and text are
// omitted. History turns keep their roles; new parts are user parts.
func BuildParts(history []models.Turn, instruction, text string, image *models.ImageAttachment) []models.Part {
	parts := make([]models.Part, 0, len(history)+3)
	for _, turn := range history {
		parts = append(parts, models.Part{Role: turn.Role, Text: turn.Text})
	}
	if instruction != "" {
		parts = append(parts, models.Part{Role: models.RoleUser, Text: instruction})
	}
	if text != "" {
		parts = append(parts, models.Part{Role: models.RoleUser, Text: text})
	}
	if !image.Empty() {
		parts = append(parts, models.Part{Role: models.RoleUser, Image: image})
	}
	return parts
}
