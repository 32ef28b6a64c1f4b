// Package tag はタグ名の正規化と解決（get-or-create）を提供する。
package tag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// maxCreateRetries はタグ同時作成レース時の再試行回数の上限。
// UNIQUE制約違反を検出するたびに再取得を試み、この回数を超えたら失敗とする。
const maxCreateRetries = 3

// MetricsRecorder はタグ作成数を記録するインターフェース。
type MetricsRecorder interface {
	RecordTagCreated()
}

// Service はタグの解決（get-or-create）サービス。
type Service struct {
	tagRepo repository.TagRepository
	metrics MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する（テスト等でメトリクス収集を省略する場合）。
func NewService(tagRepo repository.TagRepository, metrics MetricsRecorder) *Service {
	return &Service{
		tagRepo: tagRepo,
		metrics: metrics,
	}
}

// Resolve はタグ名のリストを正規化・検証し、対応するタグ実体の集合に解決する。
// 未知の名前はタグとして新規作成する（get-or-create）。
// 検証失敗時はタグを一切作成せずエラーを返す。
// 戻り値の集合に重複はなく、入力の順序に依存しない。
func (s *Service) Resolve(ctx context.Context, names []string) ([]model.Tag, error) {
	normalized := NormalizeNames(names)

	// 作成処理より先に全名前を検証する（部分的なタグ作成を防ぐ）
	if err := ValidateNames(normalized); err != nil {
		return nil, err
	}

	tags := make([]model.Tag, 0, len(normalized))
	for _, name := range normalized {
		tag, err := s.getOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}

	return tags, nil
}

// ListAll は登録済みの全タグをname昇順で返す。
// 記事から参照されなくなったタグも削除されないため一覧に残る。
func (s *Service) ListAll(ctx context.Context) ([]model.Tag, error) {
	return s.tagRepo.ListAll(ctx)
}

// ResolveText はカンマ区切りのタグ入力テキストをタグ実体の集合に解決する。
// Webフォーム経由の入力用。
func (s *Service) ResolveText(ctx context.Context, raw string) ([]model.Tag, error) {
	return s.Resolve(ctx, SplitText(raw))
}

// getOrCreate は指定名のタグを取得し、存在しなければ作成する。
// 同名タグの同時作成はtagsテーブルのUNIQUE制約で衝突し、
// 衝突を検出したら再取得で解決する。再試行は呼び出し側に透過。
func (s *Service) getOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		existing, err := s.tagRepo.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}

		tag := &model.Tag{
			ID:        uuid.New().String(),
			Name:      name,
			CreatedAt: time.Now(),
		}
		err = s.tagRepo.Create(ctx, tag)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordTagCreated()
			}
			return tag, nil
		}
		if repository.IsUniqueViolation(err) {
			// 同時作成レースに敗れた。次のループで既存タグを再取得する。
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("タグの作成が%d回の再試行後も競合しました: %s", maxCreateRetries, name)
}
