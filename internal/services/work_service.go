// internal/services/work_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Corphon/ScribeNest/internal/chapters"
	apperrors "github.com/Corphon/ScribeNest/internal/errors"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/storage"
	"github.com/Corphon/ScribeNest/internal/utils"
	"github.com/Corphon/ScribeNest/internal/validate"
)

// WorkService 作品、章节与章节关联
type WorkService struct {
	works  *storage.WorkStore
	locks  *LockManager
	logger *utils.Logger
	now    func() time.Time
}

// NewWorkService 创建作品服务
func NewWorkService(works *storage.WorkStore, locks *LockManager, logger *utils.Logger) *WorkService {
	if locks == nil {
		locks = NewLockManager()
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &WorkService{works: works, locks: locks, logger: logger, now: time.Now}
}

// CreateWork 创建作品
func (s *WorkService) CreateWork(ownerID, title, description string, descending bool) (*models.Work, error) {
	if err := validate.Title(title); err != nil {
		return nil, err
	}
	if err := validate.Description(description); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	w := &models.Work{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		Chapters:     []models.Chapter{},
		IsDescending: descending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.works.SaveWork(w); err != nil {
		return nil, apperrors.NewProcessingError("保存作品失败", err)
	}
	s.logger.Info("创建作品", map[string]interface{}{"work_id": w.ID, "owner_id": ownerID})
	return w, nil
}

// GetWork 读取作品并校验归属
func (s *WorkService) GetWork(ownerID, workID string) (*models.Work, error) {
	var w *models.Work
	err := s.locks.WithReadLock(workID, func() error {
		var err error
		w, err = s.load(ownerID, workID)
		return err
	})
	return w, err
}

func (s *WorkService) load(ownerID, workID string) (*models.Work, error) {
	w, err := s.works.LoadWork(workID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("作品不存在", err)
	}
	if err != nil {
		return nil, apperrors.NewProcessingError("读取作品失败", err)
	}
	if w.OwnerID != ownerID {
		return nil, apperrors.NewForbiddenError("无权访问该作品", nil)
	}
	return w, nil
}

// ListWorks 列出用户的作品
func (s *WorkService) ListWorks(ownerID string) ([]*models.Work, error) {
	works, err := s.works.ListWorks(ownerID)
	if err != nil {
		return nil, apperrors.NewProcessingError("读取作品列表失败", err)
	}
	return works, nil
}

// AddChapter 在作品末尾追加章节
func (s *WorkService) AddChapter(ownerID, workID, title, content string) (*models.Work, error) {
	if err := validate.Title(title); err != nil {
		return nil, err
	}
	if err := validate.Content(content); err != nil {
		return nil, err
	}

	var w *models.Work
	err := s.locks.WithLock(workID, func() error {
		var err error
		if w, err = s.load(ownerID, workID); err != nil {
			return err
		}
		w.Chapters = append(w.Chapters, models.Chapter{Title: strings.TrimSpace(title), Content: content})
		w.UpdatedAt = s.now().UTC()
		return s.save(w)
	})
	return w, err
}

func (s *WorkService) save(w *models.Work) error {
	if err := s.works.SaveWork(w); err != nil {
		return apperrors.NewProcessingError("保存作品失败", err)
	}
	return nil
}

// OpenSelector 以作品上次确认的关联结果打开章节关联窗口
func (s *WorkService) OpenSelector(ownerID, workID string) (*chapters.Selector, error) {
	w, err := s.GetWork(ownerID, workID)
	if err != nil {
		return nil, err
	}
	return newSelector(w), nil
}

func newSelector(w *models.Work) *chapters.Selector {
	opts := chapters.Options{Descending: w.IsDescending}
	if a := w.Association; a != nil {
		opts.Selected = a.SelectedChapters
		opts.AutoAssociate = a.IsAutoAssociate
		opts.AutoAssociateCount = a.AutoAssociateCount
	}
	return chapters.New(w.Chapters, opts)
}

// SaveAssociation 保存确认后的章节关联
func (s *WorkService) SaveAssociation(ownerID, workID string, d chapters.Decision) (*models.Work, error) {
	var w *models.Work
	err := s.locks.WithLock(workID, func() error {
		var err error
		if w, err = s.load(ownerID, workID); err != nil {
			return err
		}
		for _, i := range d.SelectedIndices {
			if i < 0 || i >= len(w.Chapters) {
				return apperrors.NewValidationError(fmt.Sprintf("章节下标越界: %d", i), nil)
			}
		}
		now := s.now().UTC()
		w.Association = &models.ChapterAssociation{
			SelectedChapters:   d.SelectedIndices,
			IsAutoAssociate:    d.AutoAssociate,
			AutoAssociateCount: d.AutoAssociateCount,
			UpdatedAt:          now,
		}
		w.UpdatedAt = now
		return s.save(w)
	})
	if err == nil {
		s.logger.Info("保存章节关联", map[string]interface{}{
			"work_id":  workID,
			"selected": len(d.SelectedIndices),
			"auto":     d.AutoAssociate,
			"count":    d.AutoAssociateCount,
		})
	}
	return w, err
}

// AssociationOp 章节关联窗口中的一次操作
type AssociationOp struct {
	// toggle | auto | preset
	Op      string `json:"op" binding:"required"`
	Index   int    `json:"index"`
	Enabled bool   `json:"enabled"`
	N       int    `json:"n"`
}

// Associate 依次执行操作、确认并保存结果
func (s *WorkService) Associate(ownerID, workID string, ops []AssociationOp) (chapters.Decision, error) {
	var d chapters.Decision
	err := s.locks.WithLock(workID, func() error {
		w, err := s.load(ownerID, workID)
		if err != nil {
			return err
		}
		sel := newSelector(w)
		for _, op := range ops {
			if err := applyOp(sel, op); err != nil {
				return err
			}
		}
		d = sel.Confirm()

		now := s.now().UTC()
		w.Association = &models.ChapterAssociation{
			SelectedChapters:   d.SelectedIndices,
			IsAutoAssociate:    d.AutoAssociate,
			AutoAssociateCount: d.AutoAssociateCount,
			UpdatedAt:          now,
		}
		w.UpdatedAt = now
		return s.save(w)
	})
	return d, err
}

func applyOp(sel *chapters.Selector, op AssociationOp) error {
	var err error
	switch op.Op {
	case "toggle":
		err = sel.Toggle(op.Index)
	case "auto":
		sel.SetAutoAssociate(op.Enabled)
	case "preset":
		err = sel.ApplyFirstN(op.N)
	default:
		return apperrors.NewValidationError(fmt.Sprintf("未知操作: %s", op.Op), nil)
	}
	if err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}
	return nil
}
