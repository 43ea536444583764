package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/disintegration/imaging"
)

// AzureSlideFetcher implements SlideFetcher over Azure blob storage, for
// deployments that archive scanned slides in a blob container.
type AzureSlideFetcher struct {
	client *azblob.Client
}

// NewAzureSlideFetcher builds a fetcher against one storage account.
func NewAzureSlideFetcher(accountName, accountKey string) (SlideFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureSlideFetcher{client: client}, nil
}

// FetchSlide downloads and decodes a slide blob. The URL path names the
// container; the blob query parameter names the blob.
func (s *AzureSlideFetcher) FetchSlide(ctx context.Context, slideURL string) (image.Image, error) {
	parsedURL, err := url.Parse(slideURL)
	if err != nil {
		return nil, fmt.Errorf("invalid blob URL: %w", err)
	}
	if len(parsedURL.Path) < 2 {
		return nil, fmt.Errorf("blob URL %q has no container path", slideURL)
	}

	containerName := parsedURL.Path[1:] // Remove leading slash
	blobName := parsedURL.Query().Get("blob")
	if blobName == "" {
		return nil, fmt.Errorf("blob URL %q has no blob query parameter", slideURL)
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, err := imaging.Decode(retryReader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode slide blob: %w", err)
	}
	return img, nil
}
