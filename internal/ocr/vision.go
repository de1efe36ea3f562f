package ocr

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionEngine implements Engine using Google Cloud Vision document text
// detection.
type VisionEngine struct {
	client    *vision.ImageAnnotatorClient
	langHints []string
}

// NewVisionEngine creates a Vision-backed OCR engine. credentialsFile may be
// empty, in which case application default credentials are used. langHints are
// passed through to the API (e.g. "pl" for Polish receipts).
func NewVisionEngine(ctx context.Context, credentialsFile string, langHints []string) (*VisionEngine, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &VisionEngine{client: client, langHints: langHints}, nil
}

// Recognize runs document text detection on the image bytes.
func (v *VisionEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: image},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	if len(v.langHints) > 0 {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: v.langHints}
	}

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", fmt.Errorf("vision returned no responses")
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	// A nil annotation means the engine genuinely found no text.
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}

// Close releases the underlying API client.
func (v *VisionEngine) Close() error {
	return v.client.Close()
}
