package services

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Corphon/ScribeNest/internal/errors"
	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/validate"
)

// SeedPrompt 推荐提示词导入文件中的一条
type SeedPrompt struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Content     string            `yaml:"content"`
	Type        models.PromptType `yaml:"type"`
}

type seedFile struct {
	Prompts []SeedPrompt `yaml:"prompts"`
}

// ParsePromptSeed 解析 YAML 导入文件:
//
//	prompts:
//	  - id: opening-hook
//	    title: 开篇钩子
//	    type: ai_writing
//	    content: ...
func ParsePromptSeed(r io.Reader) ([]SeedPrompt, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("解析提示词文件失败: %w", err)
	}
	return f.Prompts, nil
}

func (s SeedPrompt) toPrompt(createdAt time.Time) (*models.Prompt, error) {
	if err := validate.Title(s.Title); err != nil {
		return nil, err
	}
	if err := validate.Description(s.Description); err != nil {
		return nil, err
	}
	if !s.Type.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("不支持的提示词类型: %s", s.Type), nil)
	}

	id := s.ID
	if id == "" {
		// 同一标题与类型生成稳定ID，重复导入时覆盖
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(s.Type)+"/"+s.Title)).String()
	}
	return &models.Prompt{
		ID:          id,
		Title:       s.Title,
		Description: s.Description,
		Content:     s.Content,
		Type:        s.Type,
		OwnerID:     models.SystemOwnerID,
		IsPublic:    true,
		CreatedAt:   createdAt,
	}, nil
}
