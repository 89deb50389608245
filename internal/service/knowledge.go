package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	knowledgeCacheKey = "consult:knowledge_base"
	knowledgeCacheTTL = 10 * time.Minute
)

// KnowledgeEntry is one row of the symptom reference table.
type KnowledgeEntry struct {
	SymptomText string
	Disease     string
	Advice      string
	RedFlags    string
}

// KnowledgeService loads the symptom knowledge base used to ground the
// consult prompt. The rendered context block is cached in Redis so the
// CSV is not re-read and re-rendered on every consult.
type KnowledgeService struct {
	path  string
	redis *redis.Client
}

// NewKnowledgeService creates a KnowledgeService. The redis client may
// be nil, in which case every call reads the file.
func NewKnowledgeService(path string, redisClient *redis.Client) *KnowledgeService {
	return &KnowledgeService{
		path:  path,
		redis: redisClient,
	}
}

// Load parses the knowledge base CSV. The first record is the header
// row symptom_text,disease,advice,red_flags.
func (s *KnowledgeService) Load() ([]KnowledgeEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 4
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}

	entries := make([]KnowledgeEntry, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		entries = append(entries, KnowledgeEntry{
			SymptomText: rec[0],
			Disease:     rec[1],
			Advice:      rec[2],
			RedFlags:    rec[3],
		})
	}
	return entries, nil
}

// ContextBlock renders the knowledge base into the reference block
// embedded in the consult system prompt.
func (s *KnowledgeService) ContextBlock(ctx context.Context) (string, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, knowledgeCacheKey).Result(); err == nil {
			return cached, nil
		}
	}

	entries, err := s.Load()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("- 症状: %s -> 可能疾病: %s, 建议: %s, 警示: %s",
			e.SymptomText, e.Disease, e.Advice, e.RedFlags))
	}
	block := strings.Join(lines, "\n")

	if s.redis != nil {
		// Best effort: a failed cache write never fails the consult.
		s.redis.Set(ctx, knowledgeCacheKey, block, knowledgeCacheTTL)
	}
	return block, nil
}
