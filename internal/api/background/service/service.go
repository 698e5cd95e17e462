package backgroundService

import (
	"BackgroundRemovalAPI/internal/api/background"
	"BackgroundRemovalAPI/pkg/downloader"
	"BackgroundRemovalAPI/pkg/s3"
	"BackgroundRemovalAPI/pkg/segmentation"
	"BackgroundRemovalAPI/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IBackgroundService interface {
	ProcessImage(ctx context.Context, req background.ProcessRequest) (*background.ProcessResponse, error)
}

type backgroundService struct {
	log        *logrus.Logger
	downloader downloader.IDownloader
	remover    segmentation.Remover
	s3         s3.ItfS3
	utils      utils.IUtils
}

func NewBackgroundService(
	log *logrus.Logger,
	downloader downloader.IDownloader,
	remover segmentation.Remover,
	s3 s3.ItfS3,
	utils utils.IUtils,
) IBackgroundService {
	return &backgroundService{
		log:        log,
		downloader: downloader,
		remover:    remover,
		s3:         s3,
		utils:      utils,
	}
}
