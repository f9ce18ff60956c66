package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

func imageAt(order int) models.MediaRef {
	return models.MediaRef{ID: "m" + string(rune('a'+order)), StoragePath: "img.jpg", MediaType: models.MediaTypeImage, DisplayOrder: order}
}

func videoAt(order int) models.MediaRef {
	return models.MediaRef{ID: "v" + string(rune('a'+order)), StoragePath: "clip.mp4", MediaType: models.MediaTypeVideo, DisplayOrder: order}
}

func newPost(platformName, postType string, media ...models.MediaRef) *models.ScheduledPost {
	return &models.ScheduledPost{ID: "p1", Platform: platformName, PostType: postType, Media: media}
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Message
}

func TestSelectPlanInstagram(t *testing.T) {
	assert := assert.New(t)

	t.Run("single image feed", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeFeed, imageAt(0)))
		require.NoError(t, err)
		assert.Equal(PlanInstagramImage, plan.Kind)
		assert.Equal([]string{StepCreateContainer, StepPublish}, plan.Steps)
	})

	t.Run("feed video becomes a reel", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeFeed, videoAt(0)))
		require.NoError(t, err)
		assert.Equal(PlanInstagramReel, plan.Kind)
		assert.Contains(plan.Steps, StepWaitReady)
	})

	t.Run("feed with two items is rejected", func(t *testing.T) {
		_, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeFeed, imageAt(0), imageAt(1)))
		assert.Contains(validationMessage(t, err), "exactly one")
	})

	t.Run("carousel orders children and waits once", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeCarousel, imageAt(2), videoAt(0), imageAt(1)))
		require.NoError(t, err)
		assert.Equal(PlanInstagramCarousel, plan.Kind)
		assert.Equal([]int{0, 1, 2}, []int{plan.Media[0].DisplayOrder, plan.Media[1].DisplayOrder, plan.Media[2].DisplayOrder})
		assert.Equal([]string{
			StepCreateChild, StepCreateChild, StepCreateChild,
			StepCreateParent, StepWaitReady, StepSettle, StepPublish,
		}, plan.Steps)
	})

	t.Run("carousel with one item", func(t *testing.T) {
		_, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeCarousel, imageAt(0)))
		assert.Equal("carousel posts require at least 2 media items, got 1", validationMessage(t, err))
	})

	t.Run("carousel with eleven items", func(t *testing.T) {
		media := make([]models.MediaRef, 11)
		for i := range media {
			media[i] = imageAt(i)
		}
		_, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeCarousel, media...))
		assert.Contains(validationMessage(t, err), "at most 10")
	})

	t.Run("reel without video", func(t *testing.T) {
		_, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeReel, imageAt(0)))
		assert.Equal("reel posts require a video media item", validationMessage(t, err))
	})

	t.Run("video story waits", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformInstagram, models.PostTypeStory, videoAt(0)))
		require.NoError(t, err)
		assert.Equal([]string{StepCreateContainer, StepWaitReady, StepPublish}, plan.Steps)

		plan, err = SelectPlan(newPost(models.PlatformInstagram, models.PostTypeStory, imageAt(0)))
		require.NoError(t, err)
		assert.NotContains(plan.Steps, StepWaitReady)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := SelectPlan(newPost(models.PlatformInstagram, "igtv", videoAt(0)))
		assert.Contains(validationMessage(t, err), "igtv")
	})
}

func TestSelectPlanFacebook(t *testing.T) {
	assert := assert.New(t)

	t.Run("no media infers a link post", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformFacebook, ""))
		require.NoError(t, err)
		assert.Equal(PlanFacebookLink, plan.Kind)
		assert.Equal([]string{StepPublishFeed}, plan.Steps)
	})

	t.Run("inference", func(t *testing.T) {
		assert.Equal(models.PostTypePhoto, InferFacebookType(models.PostTypeFeed, []models.MediaRef{imageAt(0)}))
		assert.Equal(models.PostTypeVideo, InferFacebookType("", []models.MediaRef{videoAt(0)}))
		assert.Equal(models.PostTypeAlbum, InferFacebookType("", []models.MediaRef{imageAt(0), imageAt(1)}))
		assert.Equal(models.PostTypeVideo, InferFacebookType(models.PostTypeVideo, nil))
	})

	t.Run("album uploads each photo", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformFacebook, "", imageAt(0), imageAt(1)))
		require.NoError(t, err)
		assert.Equal(PlanFacebookAlbum, plan.Kind)
		assert.Equal([]string{StepUploadPhoto, StepUploadPhoto, StepPublishFeed}, plan.Steps)
	})

	t.Run("album rejects video", func(t *testing.T) {
		_, err := SelectPlan(newPost(models.PlatformFacebook, models.PostTypeAlbum, imageAt(0), videoAt(1)))
		assert.Equal("album posts support images only", validationMessage(t, err))
	})

	t.Run("link with media", func(t *testing.T) {
		_, err := SelectPlan(newPost(models.PlatformFacebook, models.PostTypeLink, imageAt(0)))
		assert.Equal("link posts cannot carry media", validationMessage(t, err))
	})

	t.Run("video publishes then waits", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformFacebook, "", videoAt(0)))
		require.NoError(t, err)
		assert.Equal(PlanFacebookVideo, plan.Kind)
		assert.Equal([]string{StepPublish, StepWaitReady}, plan.Steps)
	})
}

func TestSelectPlanPinterest(t *testing.T) {
	assert := assert.New(t)

	t.Run("first item is used", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformPinterest, models.PostTypePin, imageAt(1), imageAt(0)))
		require.NoError(t, err)
		assert.Equal(PlanPinterestImagePin, plan.Kind)
		require.Len(t, plan.Media, 1)
		assert.Equal(0, plan.Media[0].DisplayOrder)
	})

	t.Run("video first item becomes a video pin", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformPinterest, "", videoAt(0), imageAt(1)))
		require.NoError(t, err)
		assert.Equal(PlanPinterestVideoPin, plan.Kind)
		assert.Equal([]string{StepRegisterUpload, StepUploadBytes, StepWaitMedia, StepCreatePin}, plan.Steps)
	})

	t.Run("video pin picks the video", func(t *testing.T) {
		plan, err := SelectPlan(newPost(models.PlatformPinterest, models.PostTypeVideoPin, imageAt(0), videoAt(1)))
		require.NoError(t, err)
		assert.Equal(1, plan.Media[0].DisplayOrder)
	})

	t.Run("no media", func(t *testing.T) {
		_, err := SelectPlan(newPost(models.PlatformPinterest, models.PostTypePin))
		assert.Equal("pins require exactly one media item", validationMessage(t, err))
	})
}

func TestSelectPlanUnknownPlatform(t *testing.T) {
	_, err := SelectPlan(newPost("tiktok", models.PostTypeFeed, videoAt(0)))
	assert.Contains(t, validationMessage(t, err), "tiktok")
}
