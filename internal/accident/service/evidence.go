package service

import (
	"context"
	"errors"
	"strings"

	"amicable/internal/accident/models"
	"amicable/internal/platform/blob"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	"amicable/pkg/platform/audit"
	"amicable/pkg/platform/sentinel"
	"amicable/pkg/requestcontext"
)

// SetSketch replaces the viewer's sketch: any existing one is deleted and a
// fresh row inserted.
func (s *Service) SetSketch(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.SketchRequest) (_ *models.Sketch, err error) {
	ctx, done := s.begin(ctx, "set_sketch", accidentID)
	defer done(&err)

	return s.saveSketch(ctx, accidentID, viewer, req, s.store.ReplaceSketch)
}

// UpdateSketch overwrites the points of an existing sketch in place.
func (s *Service) UpdateSketch(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, req *models.SketchRequest) (_ *models.Sketch, err error) {
	ctx, done := s.begin(ctx, "update_sketch", accidentID)
	defer done(&err)

	return s.saveSketch(ctx, accidentID, viewer, req, s.store.UpdateSketch)
}

func (s *Service) saveSketch(
	ctx context.Context,
	accidentID domain.AccidentID,
	viewer domain.Principal,
	req *models.SketchRequest,
	write func(context.Context, *models.Sketch) error,
) (*models.Sketch, error) {
	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sketch *models.Sketch
	err := s.tx.RunInTx(ctx, accidentID, func(ctx context.Context) error {
		st, err := s.holderStatement(ctx, accidentID, viewer)
		if err != nil {
			return err
		}
		if err := st.CanEdit(); err != nil {
			return err
		}
		sk := models.NewSketch(st.ID, req.Points, requestcontext.Now(ctx))
		if err := write(ctx, sk); err != nil {
			return notFound(err, "sketch")
		}
		sketch = sk
		return s.emit(ctx, audit.Event{
			Type:        audit.EventSketchSaved,
			AccidentID:  accidentID,
			ActorID:     viewer.UserID,
			StatementID: st.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return sketch, nil
}

// AddImage appends a photo to the viewer's statement. The bytes are written
// to the blob store first; if the metadata insert then fails the blob is
// removed on a best-effort basis.
func (s *Service) AddImage(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, data []byte, contentType string) (_ *models.Image, err error) {
	ctx, done := s.begin(ctx, "add_image", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "image is empty")
	}
	if int64(len(data)) > s.maxImageBytes {
		return nil, dErrors.New(dErrors.CodeValidation, "image is too large")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, dErrors.New(dErrors.CodeValidation, "file is not an image")
	}

	st, err := s.holderStatement(ctx, accidentID, viewer)
	if err != nil {
		return nil, err
	}
	if err := st.CanEdit(); err != nil {
		return nil, err
	}

	key := blob.ImageKey(accidentID, st.ID)
	if err := s.blobs.Put(ctx, key, contentType, data); err != nil {
		return nil, storageError(err, "failed to store image")
	}

	var image *models.Image
	err = s.tx.RunInTx(ctx, accidentID, func(ctx context.Context) error {
		// Re-read under the lock: the statement may have been completed
		// while the upload was in flight.
		st, err := s.holderStatement(ctx, accidentID, viewer)
		if err != nil {
			return err
		}
		if err := st.CanEdit(); err != nil {
			return err
		}
		img := &models.Image{
			StatementID: st.ID,
			BlobKey:     key,
			ContentType: contentType,
			Size:        int64(len(data)),
			CreatedAt:   requestcontext.Now(ctx),
		}
		if err := s.store.AddImage(ctx, img); err != nil {
			return storageError(err, "failed to add image")
		}
		image = img
		return s.emit(ctx, audit.Event{
			Type:        audit.EventImageAdded,
			AccidentID:  accidentID,
			ActorID:     viewer.UserID,
			StatementID: st.ID,
		})
	})
	if err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned image blob",
				"key", key,
				"error", delErr,
			)
		}
		return nil, err
	}
	return image, nil
}

// ImageIDs lists the viewer's statement images in upload order.
func (s *Service) ImageIDs(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) (_ []domain.ImageID, err error) {
	ctx, done := s.begin(ctx, "image_ids", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, err
	}
	st, err := s.holderStatement(ctx, accidentID, viewer)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.ImageIDs(ctx, st.ID)
	if err != nil {
		return nil, storageError(err, "failed to load images")
	}
	return ids, nil
}

// CountImages is len(ImageIDs).
func (s *Service) CountImages(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal) (int, error) {
	ids, err := s.ImageIDs(ctx, accidentID, viewer)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Image returns one of the viewer's images with its bytes.
func (s *Service) Image(ctx context.Context, accidentID domain.AccidentID, viewer domain.Principal, imageID domain.ImageID) (_ *models.Image, _ []byte, err error) {
	ctx, done := s.begin(ctx, "image", accidentID)
	defer done(&err)

	if err := requireActive(viewer); err != nil {
		return nil, nil, err
	}
	st, err := s.holderStatement(ctx, accidentID, viewer)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.store.Image(ctx, st.ID, imageID)
	if err != nil {
		return nil, nil, notFound(err, "image")
	}
	data, contentType, err := s.blobs.Get(ctx, img.BlobKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "image not found")
		}
		return nil, nil, storageError(err, "failed to load image")
	}
	if contentType != "" {
		img.ContentType = contentType
	}
	return img, data, nil
}
