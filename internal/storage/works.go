package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Corphon/ScribeNest/internal/models"
)

const workFile = "work.json"

// WorkStore 作品存储，每个作品一个目录: <base>/<workID>/work.json
type WorkStore struct {
	files *FileStorage
}

// NewWorkStore 基于文件存储创建作品存储
func NewWorkStore(files *FileStorage) *WorkStore {
	return &WorkStore{files: files}
}

// SaveWork 保存作品
func (s *WorkStore) SaveWork(w *models.Work) error {
	if w.ID == "" {
		return fmt.Errorf("作品ID不能为空")
	}
	return s.files.SaveJSONFile(w.ID, workFile, w)
}

// LoadWork 读取作品
func (s *WorkStore) LoadWork(id string) (*models.Work, error) {
	var w models.Work
	if err := s.files.LoadJSONFile(id, workFile, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorks 列出某用户的作品，按更新时间倒序
func (s *WorkStore) ListWorks(ownerID string) ([]*models.Work, error) {
	ids, err := s.files.ListDirs("")
	if err != nil {
		return nil, err
	}

	works := make([]*models.Work, 0, len(ids))
	for _, id := range ids {
		w, err := s.LoadWork(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ownerID == "" || w.OwnerID == ownerID {
			works = append(works, w)
		}
	}
	sort.Slice(works, func(i, j int) bool { return works[i].UpdatedAt.After(works[j].UpdatedAt) })
	return works, nil
}

// DeleteWork 删除作品目录
func (s *WorkStore) DeleteWork(id string) error {
	return s.files.DeleteDir(id)
}
