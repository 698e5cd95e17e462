package entity

// SegmentationResult is the payload returned by the segmentation model server.
// Data holds Width*Height*Channels bytes, row-major, base64 encoded on the wire.
type SegmentationResult struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Data     []byte `json:"data"`
	Error    string `json:"error,omitempty"`
}
