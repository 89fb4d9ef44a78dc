package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/booking"
	"fueldelivery/internal/invoice"
	"fueldelivery/internal/model"
	"fueldelivery/internal/repository"
	"fueldelivery/internal/storage"

	"github.com/google/uuid"
)

// --- DTOs ---

// RecordDeliveryRequest carries the liters actually ordered and dispensed.
// An omitted field keeps the recorded value; an empty string clears it.
type RecordDeliveryRequest struct {
	OrderedAmount   *string `json:"ordered_amount,omitempty"`
	DispensedAmount *string `json:"dispensed_amount,omitempty"`
}

// ExportedFile is a rendered document ready to stream.
type ExportedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// --- Interface ---

type InvoiceService interface {
	RecordDelivery(ctx context.Context, actor Actor, id string, req RecordDeliveryRequest) (booking.Reconciliation, error)
	GetInvoice(ctx context.Context, actor Actor, id string) (booking.Reconciliation, error)
	UploadImage(ctx context.Context, actor Actor, id string, r io.Reader) (storage.Blob, []string, error)
	OpenImage(ctx context.Context, actor Actor, id, filename string) (io.ReadCloser, storage.Blob, error)
	DeleteImage(ctx context.Context, actor Actor, id, filename string) ([]string, error)
	ExportPDF(ctx context.Context, actor Actor, id string) (ExportedFile, error)
}

type invoiceService struct {
	bookingRepo repository.BookingRepository
	logRepo     repository.DeliveryLogRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	blobs       storage.BlobStore
	renderer    invoice.Renderer
	events      EventPublisher
	locks       *keyedMutex
}

// NewInvoiceService wires the invoice operations. A nil renderer makes ExportPDF return the HTML document.
func NewInvoiceService(
	bookingRepo repository.BookingRepository,
	logRepo repository.DeliveryLogRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	blobs storage.BlobStore,
	renderer invoice.Renderer,
	events EventPublisher,
) InvoiceService {
	return &invoiceService{
		bookingRepo: bookingRepo,
		logRepo:     logRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		blobs:       blobs,
		renderer:    renderer,
		events:      publisherOrNoop(events),
		locks:       newKeyedMutex(),
	}
}

// --- Implementation ---

func (s *invoiceService) RecordDelivery(ctx context.Context, actor Actor, id string, req RecordDeliveryRequest) (booking.Reconciliation, error) {
	if !actor.IsAdmin() {
		return booking.Reconciliation{}, fmt.Errorf("%w: only administrators can record delivered amounts", apperror.ErrForbidden)
	}
	bookingID, err := parseID("id", id)
	if err != nil {
		return booking.Reconciliation{}, err
	}
	ordered, err := parseOptionalDecimal("ordered_amount", req.OrderedAmount)
	if err != nil {
		return booking.Reconciliation{}, err
	}
	dispensed, err := parseOptionalDecimal("dispensed_amount", req.DispensedAmount)
	if err != nil {
		return booking.Reconciliation{}, err
	}

	var rec booking.Reconciliation
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookingRepo.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		if ordered == nil {
			ordered = &b.OrderedAmount
		}
		if dispensed == nil {
			dispensed = &b.DispensedAmount
		}
		if err := booking.RecordDelivery(b, *ordered, *dispensed); err != nil {
			return err
		}
		if rec, err = booking.Recompute(b); err != nil {
			return err
		}
		if err := s.bookingRepo.UpdateDelivery(txCtx, b.ID, b.OrderedAmount, b.DispensedAmount); err != nil {
			return fmt.Errorf("failed to record delivery: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionRecordDelivery, b.ID.String(), b.UserName, map[string]interface{}{
			"ordered_amount":   nullString(b.OrderedAmount, 2),
			"dispensed_amount": nullString(b.DispensedAmount, 2),
			"recomputed_total": rec.Breakdown.Rounded().Total.StringFixed(2),
		})
	})
	if err != nil {
		return booking.Reconciliation{}, err
	}

	s.events.Publish(EventDeliveryRecorded, rec)
	return rec, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, actor Actor, id string) (booking.Reconciliation, error) {
	b, err := loadVisibleBooking(ctx, s.bookingRepo, actor, id)
	if err != nil {
		return booking.Reconciliation{}, err
	}
	return booking.Recompute(b)
}

// UploadImage stores the blob, then attaches it under the booking's lock. The blob is
// removed again when the booking is missing or already holds the maximum number of images.
func (s *invoiceService) UploadImage(ctx context.Context, actor Actor, id string, r io.Reader) (storage.Blob, []string, error) {
	if !actor.IsAdmin() {
		return storage.Blob{}, nil, fmt.Errorf("%w: only administrators can attach invoice images", apperror.ErrForbidden)
	}
	bookingID, err := parseID("id", id)
	if err != nil {
		return storage.Blob{}, nil, err
	}
	// Fail fast before writing anything to disk.
	if _, err := s.bookingRepo.FindByID(ctx, bookingID); err != nil {
		return storage.Blob{}, nil, notFound(err, "booking")
	}

	blob, err := s.blobs.Save(ctx, r)
	if err != nil {
		return storage.Blob{}, nil, err
	}

	images, err := s.mutateImages(ctx, actor, bookingID, model.ActionAddInvoiceImage, blob.Filename, func(b *model.Booking) (bool, error) {
		if err := booking.AddInvoiceImage(b, blob.Filename); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		if delErr := s.blobs.Delete(context.Background(), blob.Filename); delErr != nil {
			log.Printf("invoice: failed to remove orphaned image %s: %v", blob.Filename, delErr)
		}
		return storage.Blob{}, nil, err
	}
	return blob, images, nil
}

func (s *invoiceService) OpenImage(ctx context.Context, actor Actor, id, filename string) (io.ReadCloser, storage.Blob, error) {
	b, err := loadVisibleBooking(ctx, s.bookingRepo, actor, id)
	if err != nil {
		return nil, storage.Blob{}, err
	}
	if !hasImage(b, filename) {
		return nil, storage.Blob{}, fmt.Errorf("%w: invoice image %s", apperror.ErrNotFound, filename)
	}
	return s.blobs.Open(ctx, filename)
}

// DeleteImage detaches filename and removes its blob. Deleting an image that is not attached succeeds.
func (s *invoiceService) DeleteImage(ctx context.Context, actor Actor, id, filename string) ([]string, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can remove invoice images", apperror.ErrForbidden)
	}
	bookingID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	removed := false
	images, err := s.mutateImages(ctx, actor, bookingID, model.ActionRemoveInvoiceImage, filename, func(b *model.Booking) (bool, error) {
		removed = booking.RemoveInvoiceImage(b, filename)
		return removed, nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		if err := s.blobs.Delete(ctx, filename); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			log.Printf("invoice: image %s detached but blob not removed: %v", filename, err)
		}
	}
	return images, nil
}

func (s *invoiceService) ExportPDF(ctx context.Context, actor Actor, id string) (ExportedFile, error) {
	b, err := loadVisibleBooking(ctx, s.bookingRepo, actor, id)
	if err != nil {
		return ExportedFile{}, err
	}
	deliveries, err := s.logRepo.ListByBooking(ctx, b.ID)
	if err != nil {
		return ExportedFile{}, fmt.Errorf("failed to load delivery logs: %w", err)
	}

	doc, err := invoice.BuildDocument(b, deliveries, time.Now())
	if err != nil {
		return ExportedFile{}, err
	}
	html, err := invoice.HTML(doc)
	if err != nil {
		return ExportedFile{}, err
	}

	if s.renderer == nil {
		return ExportedFile{Filename: doc.Number + ".html", ContentType: "text/html; charset=utf-8", Content: html}, nil
	}
	pdf, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		return ExportedFile{}, fmt.Errorf("failed to render invoice %s: %w", doc.Number, err)
	}
	return ExportedFile{Filename: doc.Number + ".pdf", ContentType: "application/pdf", Content: pdf}, nil
}

// --- Helpers ---

// mutateImages applies fn to the locked booking and persists the image list when fn reports a change.
func (s *invoiceService) mutateImages(
	ctx context.Context,
	actor Actor,
	bookingID uuid.UUID,
	action, filename string,
	fn func(b *model.Booking) (bool, error),
) ([]string, error) {
	unlock := s.locks.Lock(bookingID.String())
	defer unlock()

	var b *model.Booking
	changed := false
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.bookingRepo.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		b = found
		if changed, err = fn(b); err != nil || !changed {
			return err
		}
		if err := s.bookingRepo.UpdateInvoiceImages(txCtx, b); err != nil {
			return fmt.Errorf("failed to update invoice images: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, action, b.ID.String(), b.UserName, map[string]string{"image": filename})
	})
	if err != nil {
		return nil, err
	}

	images := append([]string{}, b.InvoiceImages...)
	if changed {
		s.events.Publish(EventInvoiceImagesChanged, map[string]interface{}{
			"booking_id":     b.ID.String(),
			"invoice_images": images,
		})
	}
	return images, nil
}

func hasImage(b *model.Booking, filename string) bool {
	for _, img := range b.InvoiceImages {
		if img == filename {
			return true
		}
	}
	return false
}

// keyedMutex hands out one mutex per key and drops it when the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
