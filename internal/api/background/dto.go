package background

import "BackgroundRemovalAPI/internal/entity"

type ProcessRequest struct {
	ImageURL    string             `json:"image_url" validate:"required,url"`
	BoundingBox entity.BoundingBox `json:"bounding_box"`
}

type ProcessResponse struct {
	OriginalImageURL  string `json:"original_image_url"`
	ProcessedImageURL string `json:"processed_image_url"`
}

type WelcomeResponse struct {
	Message string `json:"message"`
}

const WelcomeMessage = "Welcome to the Background Removal API. Use /process endpoint to process images."
