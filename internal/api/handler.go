package api

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-review/internal/aggregate"
	"github.com/insightdelivered/statement-review/internal/extractor"
	"github.com/insightdelivered/statement-review/internal/guides"
	"github.com/insightdelivered/statement-review/internal/layout"
	"github.com/insightdelivered/statement-review/internal/models"
	"github.com/insightdelivered/statement-review/internal/reconstruct"
	"github.com/insightdelivered/statement-review/internal/store"
	"github.com/insightdelivered/statement-review/internal/writer"
)

const version = "1.1.0"

// Handler holds the HTTP handlers for the review API.
type Handler struct {
	Sessions  *store.Manager
	Saver     *store.Saver
	Recon     *reconstruct.Reconstructor
	StaticDir string
	Log       zerolog.Logger
}

func NewHandler(sessions *store.Manager, saver *store.Saver, log zerolog.Logger) *Handler {
	return &Handler{
		Sessions: sessions,
		Saver:    saver,
		Recon:    reconstruct.NewReconstructor(),
		Log:      log,
	}
}

// Register sets up the API routes on the fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)

	app.Post("/api/sessions", h.HandleCreateSession)
	app.Delete("/api/sessions/:id", h.HandleDropSession)
	app.Get("/api/sessions/:id/summary", h.HandleSummary)
	app.Get("/api/sessions/:id/export", h.HandleExport)

	page := app.Group("/api/sessions/:id/pages/:page")
	page.Get("/fragments", h.HandleFragments)
	page.Post("/reconstruct", h.HandleReconstruct)
	page.Get("/rows", h.HandleGetRows)
	page.Put("/rows", h.HandlePutRows)
	page.Post("/guides", h.HandleAddGuide)
	page.Delete("/guides", h.HandleClearGuides)
	page.Post("/guides/undo", h.HandleUndo)
	page.Post("/guides/redo", h.HandleRedo)
	page.Post("/guides/seed", h.HandleSeedGuides)
	page.Put("/layout", h.HandleLayout)
	page.Get("/sections", h.HandleSections)
	page.Get("/state", h.HandleGetState)
	page.Put("/state", h.HandlePutState)

	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
	}
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": version,
	})
}

// PageInfo summarizes one extracted page in the session-create response.
type PageInfo struct {
	Page          string `json:"page"`
	FragmentCount int    `json:"fragment_count"`
}

// HandleCreateSession starts a review session. When a PDF with a text layer
// is uploaded under form field "file", its pages are extracted into
// positioned fragments immediately.
func (h *Handler) HandleCreateSession(c *fiber.Ctx) error {
	sess := h.Sessions.Create()

	var pages []PageInfo
	if fileHeader, err := c.FormFile("file"); err == nil {
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
			h.Sessions.Drop(sess.ID)
			return writeError(c, fiber.StatusBadRequest, "only PDF files are supported")
		}

		tmp, err := os.CreateTemp("", "statement-*.pdf")
		if err != nil {
			h.Sessions.Drop(sess.ID)
			return writeError(c, fiber.StatusInternalServerError, "failed to create temp file")
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		src, err := fileHeader.Open()
		if err != nil {
			h.Sessions.Drop(sess.ID)
			return writeError(c, fiber.StatusBadRequest, "failed to read uploaded file")
		}
		defer src.Close()
		if _, err := io.Copy(tmp, src); err != nil {
			h.Sessions.Drop(sess.ID)
			return writeError(c, fiber.StatusInternalServerError, "failed to save uploaded file")
		}
		tmp.Close()

		layouts, err := extractor.ExtractLayout(tmp.Name())
		if err != nil {
			h.Sessions.Drop(sess.ID)
			return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
		}

		for i, pl := range layouts {
			key := fmt.Sprintf("%d", i+1)
			sess.SetFragments(key, pl.Fragments)
			pages = append(pages, PageInfo{Page: key, FragmentCount: len(pl.Fragments)})
		}
		h.Log.Info().Str("session", sess.ID).Int("pages", len(layouts)).Msg("statement uploaded")
	}

	if pages == nil {
		pages = []PageInfo{}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": sess.ID,
		"pages":      pages,
	})
}

func (h *Handler) HandleDropSession(c *fiber.Ctx) error {
	h.Sessions.Drop(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) HandleFragments(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	fragments := sess.Fragments(pageKey)
	if fragments == nil {
		fragments = []models.OcrFragment{}
	}
	return c.JSON(fiber.Map{
		"page":      pageKey,
		"fragments": fragments,
	})
}

// ReconstructRequest optionally carries fragments from an external OCR pass.
// When omitted, the fragments stored for the page are used.
type ReconstructRequest struct {
	Fragments []models.OcrFragment `json:"fragments"`
}

// HandleReconstruct runs the reconstruction engine over the page. Concurrent
// runs for the same page are rejected with 409; finished runs replace the
// page's rows wholesale.
func (h *Handler) HandleReconstruct(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}

	if !sess.TryBeginOCR(pageKey) {
		return writeError(c, fiber.StatusConflict, "a reconstruction pass is already running for this page")
	}
	defer sess.EndOCR(pageKey)

	var req ReconstructRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		}
	}
	if len(req.Fragments) > 0 {
		sess.SetFragments(pageKey, req.Fragments)
	}

	fragments := sess.Fragments(pageKey)
	var manual layout.Layout
	if lay, isManual := sess.Guides.ManualLayout(pageKey); isManual {
		manual = lay
	}

	result := h.Recon.Reconstruct(pageKey, fragments, manual)
	sess.SetRows(pageKey, result.Rows, result.Bounds)

	quality := reconstruct.EvaluateQuality(result.Rows)
	h.Log.Info().
		Str("session", sess.ID).
		Str("page", pageKey).
		Int("rows", len(result.Rows)).
		Bool("pass", quality.Passes).
		Msg("page reconstructed")

	return c.JSON(fiber.Map{
		"page":    pageKey,
		"rows":    result.Rows,
		"bounds":  result.Bounds,
		"quality": quality,
	})
}

func (h *Handler) HandleGetRows(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	rows := sess.Rows(pageKey)
	if rows == nil {
		rows = []models.TransactionRow{}
	}
	return c.JSON(fiber.Map{
		"page": pageKey,
		"rows": rows,
	})
}

// RowsUpdate replaces a page's rows with reviewer edits.
type RowsUpdate struct {
	Rows []models.TransactionRow `json:"rows"`
}

func (h *Handler) HandlePutRows(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	var req RowsUpdate
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	sess.SetRows(pageKey, req.Rows, sess.Bounds(pageKey))
	h.Saver.Save(sess.ID)
	return c.JSON(fiber.Map{
		"page": pageKey,
		"rows": sess.Rows(pageKey),
	})
}

// GuideRequest carries the normalized position of a new horizontal guide.
type GuideRequest struct {
	Position float64 `json:"position"`
}

func (h *Handler) HandleAddGuide(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	var req GuideRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	applied := sess.Guides.AddGuide(pageKey, guides.Horizontal, req.Position)
	h.Saver.Save(sess.ID)
	return h.guideState(c, sess, pageKey, applied)
}

func (h *Handler) HandleClearGuides(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	applied := sess.Guides.ClearGuides(pageKey)
	h.Saver.Save(sess.ID)
	return h.guideState(c, sess, pageKey, applied)
}

func (h *Handler) HandleUndo(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	applied := sess.Guides.Undo(pageKey)
	h.Saver.Save(sess.ID)
	return h.guideState(c, sess, pageKey, applied)
}

func (h *Handler) HandleRedo(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	applied := sess.Guides.Redo(pageKey)
	h.Saver.Save(sess.ID)
	return h.guideState(c, sess, pageKey, applied)
}

// HandleSeedGuides derives horizontal guides from the bounds of the last
// reconstruction. It refuses when the reviewer has already placed guides.
func (h *Handler) HandleSeedGuides(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	bounds := sess.Bounds(pageKey)
	applied := sess.Guides.AutoSeedHorizontal(pageKey, bounds)
	h.Saver.Save(sess.ID)
	return h.guideState(c, sess, pageKey, applied)
}

// LayoutRequest is one column layout mutation. Exactly one of the fields
// should be set. Sync recomputes column widths from the page's vertical
// guides when their counts line up.
type LayoutRequest struct {
	Columns []models.ColumnPayload `json:"columns,omitempty"`
	Reorder *ReorderSpec           `json:"reorder,omitempty"`
	Resize  *ResizeSpec            `json:"resize,omitempty"`
	Sync    bool                   `json:"sync,omitempty"`
}

type ReorderSpec struct {
	Source models.ColumnRole `json:"source"`
	Target models.ColumnRole `json:"target"`
}

type ResizeSpec struct {
	Index int     `json:"index"`
	Delta float64 `json:"delta"`
}

func (h *Handler) HandleLayout(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	var req LayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	applied := false
	switch {
	case len(req.Columns) > 0:
		lay := make(layout.Layout, 0, len(req.Columns))
		for _, col := range req.Columns {
			lay = append(lay, layout.Column{Key: col.Key, Width: col.Width})
		}
		sess.Guides.SetLayout(pageKey, lay)
		applied = true
	case req.Reorder != nil:
		applied = sess.Guides.ReorderColumns(pageKey, req.Reorder.Source, req.Reorder.Target)
	case req.Resize != nil:
		applied = sess.Guides.ResizeColumnPair(pageKey, req.Resize.Index, req.Resize.Delta)
	case req.Sync:
		applied = sess.Guides.SyncLayoutFromGuides(pageKey)
	default:
		return writeError(c, fiber.StatusBadRequest, "layout request needs columns, reorder, resize, or sync")
	}

	h.Saver.Save(sess.ID)
	return h.guideState(c, sess, pageKey, applied)
}

// HandleSections returns the grid of rectangular sections implied by the
// page's current guides. The UI renders these over the page image.
func (h *Handler) HandleSections(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	sections := reconstruct.BuildSections(sess.Guides.Guides(pageKey))
	if sections == nil {
		sections = []models.NormalizedBox{}
	}
	return c.JSON(fiber.Map{
		"page":     pageKey,
		"sections": sections,
	})
}

func (h *Handler) HandleGetState(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	return c.JSON(sess.Guides.ToPayload(pageKey))
}

func (h *Handler) HandlePutState(c *fiber.Ctx) error {
	sess, pageKey, err := h.sessionPage(c)
	if err != nil {
		return err
	}
	var payload models.GuidePayload
	if err := c.BodyParser(&payload); err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	sess.Guides.FromPayload(pageKey, payload)
	h.Saver.Save(sess.ID)
	return c.JSON(sess.Guides.ToPayload(pageKey))
}

func (h *Handler) HandleSummary(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(aggregate.Summarize(sess.AllRows()))
}

func (h *Handler) HandleExport(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := &writer.CSVWriter{IncludeSummary: true}
	if err := w.Write(&buf, sess.AllRows()); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="statement-%s.csv"`, sess.ID))
	return c.Send(buf.Bytes())
}

func (h *Handler) guideState(c *fiber.Ctx, sess *store.Session, pageKey string, applied bool) error {
	payload := sess.Guides.ToPayload(pageKey)
	return c.JSON(fiber.Map{
		"applied":       applied,
		"column_layout": payload.ColumnLayout,
		"horizontal":    payload.Horizontal,
	})
}

func (h *Handler) session(c *fiber.Ctx) (*store.Session, error) {
	sess, ok := h.Sessions.Get(c.Params("id"))
	if !ok {
		return nil, writeError(c, fiber.StatusNotFound, "session not found")
	}
	return sess, nil
}

func (h *Handler) sessionPage(c *fiber.Ctx) (*store.Session, string, error) {
	sess, err := h.session(c)
	if err != nil {
		return nil, "", err
	}
	pageKey := c.Params("page")
	if pageKey == "" {
		return nil, "", writeError(c, fiber.StatusBadRequest, "page key required")
	}
	return sess, pageKey, nil
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
