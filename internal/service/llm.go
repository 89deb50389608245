package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mediguide/backend/config"
)

// ErrAPIKeyMissing is returned by the streaming relay when no provider
// credential is configured. The one-shot consult degrades to a fixed
// fallback object instead; the asymmetry mirrors the shipped behavior.
var ErrAPIKeyMissing = errors.New("DeepSeek API key not configured")

// Supported chat models. The reasoner model additionally streams its
// visible chain-of-thought as reasoning_content deltas.
const (
	ModelChat     = "deepseek-chat"
	ModelReasoner = "deepseek-reasoner"
)

const (
	defaultTemperature = 1.3
	streamMaxTokens    = 4000
)

// LLMService relays consult and chat requests to the DeepSeek
// chat-completions API.
type LLMService struct {
	apiKey    string
	apiURL    string
	client    *http.Client
	knowledge *KnowledgeService
	log       *zap.Logger
}

func NewLLMService(cfg *config.Config, knowledge *KnowledgeService, log *zap.Logger) *LLMService {
	return &LLMService{
		apiKey:    cfg.DeepSeekAPIKey,
		apiURL:    strings.TrimRight(cfg.DeepSeekBaseURL, "/") + "/chat/completions",
		client:    &http.Client{},
		knowledge: knowledge,
		log:       log,
	}
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []ChatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Temperature    float64           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Stream         bool              `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// TriageResult is the fixed JSON shape the consult prompt requires.
type TriageResult struct {
	Disease  string `json:"disease"`
	Advice   string `json:"advice"`
	RedFlags string `json:"red_flags"`
}

const consultSystemPrompt = `你是一个专业的辅助医疗AI助手。请根据用户的症状描述，结合以下的参考知识库，给出可能的疾病推测、医疗建议和警示信号。

参考知识库：
%s

请以JSON格式返回结果，包含三个字段：
- disease: 可能的疾病名称（如果无法确定，请说明）
- advice: 具体的医疗建议（分点列出）
- red_flags: 需要立即就医的严重症状警示

注意：必须在回复末尾添加“本平台内容仅供科普参考，不能替代专业医疗建议。如有不适，请及时就医。”`

// consultFallback is returned when no provider credential is
// configured: graceful degradation, not an error.
var consultFallback = TriageResult{
	Disease:  "API Key Missing",
	Advice:   "请在服务器环境变量中配置 DEEPSEEK_API_KEY 以使用 AI 功能。当前仅演示模拟回复。",
	RedFlags: "无法连接AI服务。",
}

// Consult performs a one-shot symptom triage: the rendered knowledge
// base is embedded in the system prompt and the provider is asked for
// a JSON object with disease, advice and red_flags. Upstream failures
// are terminal; no retry.
func (s *LLMService) Consult(ctx context.Context, symptom string) (*TriageResult, error) {
	if s.apiKey == "" {
		result := consultFallback
		return &result, nil
	}

	kbBlock, err := s.knowledge.ContextBlock(ctx)
	if err != nil {
		// Same behavior as an empty reference file: consult still
		// proceeds, just without grounding rows.
		s.log.Warn("failed to load knowledge base", zap.Error(err))
		kbBlock = ""
	}

	reqBody := chatRequest{
		Model: ModelChat,
		Messages: []ChatMessage{
			{Role: "system", Content: fmt.Sprintf(consultSystemPrompt, kbBlock)},
			{Role: "user", Content: "我感觉：" + symptom},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no response from API")
	}

	var triage TriageResult
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &triage); err != nil {
		return nil, fmt.Errorf("failed to parse triage result: %w", err)
	}
	return &triage, nil
}

// ChatDelta is one incremental unit of a streamed reply. At least one
// of the fields is non-empty; Reasoning only appears for the reasoner
// model.
type ChatDelta struct {
	Reasoning string `json:"reasoning_content,omitempty"`
	Content   string `json:"content,omitempty"`
}

// StreamEvent is one unit emitted by StreamChat. Exactly one of the
// fields is set; a Done or Err event is always the last one before
// the channel closes.
type StreamEvent struct {
	Delta *ChatDelta
	Err   error
	Done  bool
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			ReasoningContent string `json:"reasoning_content"`
			Content          string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

const defaultChatSystemPrompt = `你是“小晴”，一个基于大语言模型的 AI 智能辅助问诊助手。

【你的身份】
- 你是 AI 智能辅助问诊模型，专门为用户提供健康问题的初步分析和建议
- 你具备医学知识，但你不是真正的医生，你的建议仅供参考

【你的职责】
1. **智能分析症状**：根据用户描述的症状，结合医学知识进行初步分析
2. **提供参考建议**：给出可能的疾病方向、就医建议、日常护理建议
3. **倾听与共情**：用温暖、专业的语言与用户交流，缓解其焦虑
4. **安全提醒**：当症状严重或紧急时，明确建议立即就医
5. **用药指导**：提供用药的一般性建议，但强调需遵医嘱

【回答原则】
- 回答时要专业但不晦涩，用通俗易懂的语言解释医学概念
- 对不确定的问题要诚实说明，不要给出模棱两可的答案
- 每次回答后都要提醒：“本建议仅供参考，如症状持续或加重，请及时就医”
- 保持温和、耐心、友善的语气，像一个关心用户健康的朋友

【回答格式参考】
当用户描述症状时，你可以这样回答：
1. 理解和共情：“我理解您现在的感受...”
2. 症状分析：“根据您描述的症状...”
3. 可能原因：“这可能是由于...”
4. 建议措施：“建议您...”
5. 就医指导：“如果...情况，建议立即就医”
6. 免责声明：“以上建议仅供参考，请以医生诊断为准”

记住：你是 AI 智能辅助问诊模型，你的目标是提供有价值的健康参考信息，但不能替代专业医疗诊断。`

// StreamChat opens a streaming completion and relays each incremental
// delta on the returned channel. The channel ends with exactly one
// Done event, or one Err event if the stream fails mid-flight; there
// is no retry or resume. Cancelling ctx aborts the upstream call, so
// a disconnected client does not leak a provider connection.
func (s *LLMService) StreamChat(ctx context.Context, messages []ChatMessage, model string, temperature float64) (<-chan StreamEvent, error) {
	if s.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	if model == "" {
		model = ModelChat
	}
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	hasSystem := false
	for _, m := range messages {
		if m.Role == "system" {
			hasSystem = true
			break
		}
	}
	if !hasSystem {
		messages = append([]ChatMessage{{Role: "system", Content: defaultChatSystemPrompt}}, messages...)
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   streamMaxTokens,
		Stream:      true,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	out := make(chan StreamEvent)
	go s.relayStream(ctx, req, out)
	return out, nil
}

func (s *LLMService) relayStream(ctx context.Context, req *http.Request, out chan<- StreamEvent) {
	defer close(out)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.emit(ctx, out, StreamEvent{Err: fmt.Errorf("stream request failed: %w", err)})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.emit(ctx, out, StreamEvent{Err: fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))})
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.emit(ctx, out, StreamEvent{Err: fmt.Errorf("malformed stream chunk: %w", err)})
			return
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.ReasoningContent == "" && delta.Content == "" {
			continue
		}
		if !s.emit(ctx, out, StreamEvent{Delta: &ChatDelta{
			Reasoning: delta.ReasoningContent,
			Content:   delta.Content,
		}}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.emit(ctx, out, StreamEvent{Err: fmt.Errorf("stream interrupted: %w", err)})
		return
	}

	s.log.Debug("stream completed", zap.Duration("elapsed", time.Since(start)))
	s.emit(ctx, out, StreamEvent{Done: true})
}

func (s *LLMService) emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
