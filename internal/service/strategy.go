package service

import (
	"fmt"
	"sort"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

type PlanKind string

const (
	PlanInstagramImage    PlanKind = "instagram_image"
	PlanInstagramCarousel PlanKind = "instagram_carousel"
	PlanInstagramReel     PlanKind = "instagram_reel"
	PlanInstagramStory    PlanKind = "instagram_story"
	PlanFacebookPhoto     PlanKind = "facebook_photo"
	PlanFacebookVideo     PlanKind = "facebook_video"
	PlanFacebookLink      PlanKind = "facebook_link"
	PlanFacebookAlbum     PlanKind = "facebook_album"
	PlanPinterestImagePin PlanKind = "pinterest_image_pin"
	PlanPinterestVideoPin PlanKind = "pinterest_video_pin"
)

const (
	StepCreateContainer = "create_container"
	StepCreateChild     = "create_child_container"
	StepCreateParent    = "create_carousel_container"
	StepWaitReady       = "wait_until_ready"
	StepSettle          = "settle"
	StepPublish         = "publish"
	StepUploadPhoto     = "upload_unpublished_photo"
	StepPublishFeed     = "publish_feed_post"
	StepRegisterUpload  = "register_media_upload"
	StepUploadBytes     = "upload_media_bytes"
	StepWaitMedia       = "wait_media_succeeded"
	StepCreatePin       = "create_pin"
)

const maxInstagramCarouselSize = 10

// Plan is the ordered adapter call sequence for one publish attempt. Media is
// already sorted by display order and trimmed to what the flow consumes.
type Plan struct {
	Kind  PlanKind
	Media []models.MediaRef
	Steps []string
}

// SelectPlan decides how a post is published. It makes no network calls and
// rejects malformed posts with a *ValidationError.
func SelectPlan(post *models.ScheduledPost) (*Plan, error) {
	media := sortedMedia(post.Media)

	switch post.Platform {
	case models.PlatformInstagram:
		return instagramPlan(post.PostType, media)
	case models.PlatformFacebook:
		return facebookPlan(post.PostType, media)
	case models.PlatformPinterest:
		return pinterestPlan(post.PostType, media)
	default:
		return nil, invalid(fmt.Sprintf("unsupported platform %q", post.Platform))
	}
}

func sortedMedia(in []models.MediaRef) []models.MediaRef {
	out := make([]models.MediaRef, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

func firstVideo(media []models.MediaRef) (models.MediaRef, bool) {
	for _, m := range media {
		if m.IsVideo() {
			return m, true
		}
	}
	return models.MediaRef{}, false
}

func instagramPlan(postType string, media []models.MediaRef) (*Plan, error) {
	switch postType {
	case models.PostTypeFeed, "":
		if len(media) != 1 {
			return nil, invalid("feed posts require exactly one media item; use a carousel for more")
		}
		if media[0].IsVideo() {
			return reelPlan(media)
		}
		return &Plan{
			Kind:  PlanInstagramImage,
			Media: media,
			Steps: []string{StepCreateContainer, StepPublish},
		}, nil

	case models.PostTypeReel:
		return reelPlan(media)

	case models.PostTypeStory:
		if len(media) != 1 {
			return nil, invalid("story posts require exactly one media item")
		}
		steps := []string{StepCreateContainer, StepPublish}
		if media[0].IsVideo() {
			steps = []string{StepCreateContainer, StepWaitReady, StepPublish}
		}
		return &Plan{Kind: PlanInstagramStory, Media: media, Steps: steps}, nil

	case models.PostTypeCarousel:
		if len(media) < 2 {
			return nil, invalid(fmt.Sprintf("carousel posts require at least 2 media items, got %d", len(media)))
		}
		if len(media) > maxInstagramCarouselSize {
			return nil, invalid(fmt.Sprintf("carousel posts allow at most %d media items, got %d", maxInstagramCarouselSize, len(media)))
		}
		steps := make([]string, 0, len(media)+4)
		for range media {
			steps = append(steps, StepCreateChild)
		}
		steps = append(steps, StepCreateParent, StepWaitReady, StepSettle, StepPublish)
		return &Plan{Kind: PlanInstagramCarousel, Media: media, Steps: steps}, nil

	default:
		return nil, invalid(fmt.Sprintf("unsupported instagram post type %q", postType))
	}
}

func reelPlan(media []models.MediaRef) (*Plan, error) {
	video, ok := firstVideo(media)
	if !ok {
		return nil, invalid("reel posts require a video media item")
	}
	if len(media) != 1 {
		return nil, invalid("reel posts require exactly one video media item")
	}
	return &Plan{
		Kind:  PlanInstagramReel,
		Media: []models.MediaRef{video},
		Steps: []string{StepCreateContainer, StepWaitReady, StepPublish},
	}, nil
}

// InferFacebookType derives the Facebook sub-type from the media shape when the
// post does not name one.
func InferFacebookType(postType string, media []models.MediaRef) string {
	if postType != "" && postType != models.PostTypeFeed {
		return postType
	}
	switch {
	case len(media) == 0:
		return models.PostTypeLink
	case len(media) > 1:
		return models.PostTypeAlbum
	case media[0].IsVideo():
		return models.PostTypeVideo
	default:
		return models.PostTypePhoto
	}
}

func facebookPlan(postType string, media []models.MediaRef) (*Plan, error) {
	switch InferFacebookType(postType, media) {
	case models.PostTypeLink:
		if len(media) > 0 {
			return nil, invalid("link posts cannot carry media")
		}
		return &Plan{Kind: PlanFacebookLink, Steps: []string{StepPublishFeed}}, nil

	case models.PostTypePhoto:
		if len(media) != 1 {
			return nil, invalid("photo posts require exactly one media item")
		}
		if media[0].IsVideo() {
			return nil, invalid("photo posts require an image media item")
		}
		return &Plan{Kind: PlanFacebookPhoto, Media: media, Steps: []string{StepPublish}}, nil

	case models.PostTypeVideo:
		video, ok := firstVideo(media)
		if !ok {
			return nil, invalid("video posts require a video media item")
		}
		if len(media) != 1 {
			return nil, invalid("video posts require exactly one video media item")
		}
		return &Plan{
			Kind:  PlanFacebookVideo,
			Media: []models.MediaRef{video},
			Steps: []string{StepPublish, StepWaitReady},
		}, nil

	case models.PostTypeAlbum:
		if len(media) < 2 {
			return nil, invalid(fmt.Sprintf("album posts require at least 2 media items, got %d", len(media)))
		}
		if _, ok := firstVideo(media); ok {
			return nil, invalid("album posts support images only")
		}
		steps := make([]string, 0, len(media)+1)
		for range media {
			steps = append(steps, StepUploadPhoto)
		}
		steps = append(steps, StepPublishFeed)
		return &Plan{Kind: PlanFacebookAlbum, Media: media, Steps: steps}, nil

	default:
		return nil, invalid(fmt.Sprintf("unsupported facebook post type %q", postType))
	}
}

// pinterestPlan uses the first media item when several are present.
func pinterestPlan(postType string, media []models.MediaRef) (*Plan, error) {
	switch postType {
	case models.PostTypePin, "":
		if len(media) == 0 {
			return nil, invalid("pins require exactly one media item")
		}
		if media[0].IsVideo() {
			return videoPinPlan(media[0]), nil
		}
		return &Plan{
			Kind:  PlanPinterestImagePin,
			Media: media[:1],
			Steps: []string{StepCreatePin},
		}, nil

	case models.PostTypeVideoPin:
		if len(media) == 0 {
			return nil, invalid("pins require exactly one media item")
		}
		video, ok := firstVideo(media)
		if !ok {
			return nil, invalid("video pins require a video media item")
		}
		return videoPinPlan(video), nil

	default:
		return nil, invalid(fmt.Sprintf("unsupported pinterest post type %q", postType))
	}
}

func videoPinPlan(video models.MediaRef) *Plan {
	return &Plan{
		Kind:  PlanPinterestVideoPin,
		Media: []models.MediaRef{video},
		Steps: []string{StepRegisterUpload, StepUploadBytes, StepWaitMedia, StepCreatePin},
	}
}
