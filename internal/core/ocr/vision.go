package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// MaxImageBytes is the inline image limit of the Vision API.
const MaxImageBytes = 20 * 1024 * 1024

// annotateFunc sends one image request; the Vision client satisfies it in production.
type annotateFunc func(ctx context.Context, req *visionpb.AnnotateImageRequest) (*visionpb.AnnotateImageResponse, error)

// VisionSource recognizes page images with Google Cloud Vision DOCUMENT_TEXT_DETECTION.
type VisionSource struct {
	cfg      Config
	runner   Runner
	logger   *slog.Logger
	annotate annotateFunc
	client   *vision.ImageAnnotatorClient
}

// NewVisionSource builds the client from inline JSON credentials, a credentials
// file, or application default credentials, in that order.
func NewVisionSource(ctx context.Context, cfg Config, credJSON, credFile string, logger *slog.Logger) (*VisionSource, error) {
	var opts []option.ClientOption
	switch {
	case credJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	case credFile != "":
		opts = append(opts, option.WithCredentialsFile(credFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	s := newVisionSource(cfg, execRunner{}, nil, logger)
	s.client = client
	s.annotate = func(ctx context.Context, req *visionpb.AnnotateImageRequest) (*visionpb.AnnotateImageResponse, error) {
		resp, err := client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
			Requests: []*visionpb.AnnotateImageRequest{req},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.GetResponses()) == 0 {
			return nil, errors.New("no response from Vision API")
		}
		return resp.GetResponses()[0], nil
	}
	return s, nil
}

func newVisionSource(cfg Config, r Runner, annotate annotateFunc, logger *slog.Logger) *VisionSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionSource{cfg: cfg.withDefaults(), runner: r, logger: logger, annotate: annotate}
}

func (s *VisionSource) Pages(ctx context.Context, path string) ([]PageText, error) {
	return imagePages(ctx, s.runner, s.logger, s.cfg, path, s.recognize)
}

func (s *VisionSource) recognize(ctx context.Context, img string) (string, error) {
	content, err := os.ReadFile(img)
	if err != nil {
		return "", err
	}
	if len(content) > MaxImageBytes {
		return "", fmt.Errorf("image %s is %d bytes, over the %d byte limit", img, len(content), MaxImageBytes)
	}
	resp, err := s.annotate(ctx, &visionpb.AnnotateImageRequest{
		Image:    &visionpb.Image{Content: content},
		Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
	})
	if err != nil {
		return "", fmt.Errorf("vision: %w", err)
	}
	if e := resp.GetError(); e != nil && e.GetMessage() != "" {
		return "", fmt.Errorf("vision: %s", e.GetMessage())
	}
	if fta := resp.GetFullTextAnnotation(); fta != nil {
		return fta.GetText(), nil
	}
	// Plain TEXT_DETECTION puts the whole page in the first annotation.
	if anns := resp.GetTextAnnotations(); len(anns) > 0 {
		return anns[0].GetDescription(), nil
	}
	return "", nil
}

// Close releases the Vision client.
func (s *VisionSource) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
