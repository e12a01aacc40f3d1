package detection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Hara602/activitySentry/internal/model"
	"github.com/Hara602/activitySentry/internal/sysutil"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type keywordPattern struct {
	word string
	re   *regexp.Regexp
}

// SignatureDetector 关键词签名检测，大小写不敏感、整词匹配。
// 关键词文件缺失或为空时检测器不告警，而不是报错。
type SignatureDetector struct {
	path       string
	classifier Classifier
	log        *zap.Logger

	// Watch 会在后台替换规则集
	mu       sync.RWMutex
	patterns []keywordPattern
}

type SignatureOption func(*SignatureDetector)

func WithSignatureClassifier(c Classifier) SignatureOption {
	return func(d *SignatureDetector) {
		if c != nil {
			d.classifier = c
		}
	}
}

func WithSignatureLogger(l *zap.Logger) SignatureOption {
	return func(d *SignatureDetector) { d.log = l }
}

// NewSignatureDetector 从关键词文件加载规则
func NewSignatureDetector(keywordFile string, opts ...SignatureOption) *SignatureDetector {
	d := &SignatureDetector{
		path:       keywordFile,
		classifier: NeverSuspicious{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = sysutil.OrNop(d.log)

	if err := d.Reload(); err != nil {
		d.log.Warn("⚠️ Keyword list unavailable, signature detection is inert",
			zap.String("file", keywordFile), zap.Error(err))
	}
	return d
}

// NewSignatureDetectorFromKeywords 直接使用给定关键词
func NewSignatureDetectorFromKeywords(keywords []string, opts ...SignatureOption) *SignatureDetector {
	d := &SignatureDetector{classifier: NeverSuspicious{}}
	for _, opt := range opts {
		opt(d)
	}
	d.log = sysutil.OrNop(d.log)
	d.patterns = compileKeywords(keywords)
	return d
}

// Reload 重新读取关键词文件；文件不存在时规则集为空
func (d *SignatureDetector) Reload() error {
	keywords, err := LoadKeywords(d.path)
	patterns := compileKeywords(keywords)

	d.mu.Lock()
	d.patterns = patterns
	d.mu.Unlock()
	return err
}

// Keywords 当前生效的关键词
func (d *SignatureDetector) Keywords() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	words := make([]string, len(d.patterns))
	for i, p := range d.patterns {
		words[i] = p.word
	}
	return words
}

// Match 返回 text 命中的全部关键词
func (d *SignatureDetector) Match(text string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var matches []string
	for _, p := range d.patterns {
		if p.re.MatchString(text) {
			matches = append(matches, p.word)
		}
	}
	return matches
}

// Process 处理一个按键事件，命中关键词或分类器判定可疑时返回告警
func (d *SignatureDetector) Process(ev model.Event) *model.Alert {
	if ev.Key == nil {
		return nil
	}
	matches := d.Match(ev.Text())
	mlFlag := d.classifier.Suspicious(ev, nil)
	if len(matches) == 0 && !mlFlag {
		return nil
	}
	return &model.Alert{
		Timestamp: ev.Timestamp,
		Type:      model.AlertScript,
		Signature: &model.SignatureEvidence{Matches: matches, MLFlag: mlFlag},
		Source:    ev,
	}
}

// Watch 监听关键词文件变化并热加载，阻塞到 ctx 结束
func (d *SignatureDetector) Watch(ctx context.Context) error {
	if d.path == "" {
		return errors.New("no keyword file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// 监听目录，编辑器常用 rename 方式保存
	target := filepath.Clean(d.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				debounce = time.After(100 * time.Millisecond)
			}

		case <-debounce:
			debounce = nil
			if err := d.Reload(); err != nil {
				d.log.Warn("⚠️ Keyword reload failed, signature detection is inert", zap.Error(err))
				continue
			}
			d.log.Info("🔄 Keyword list reloaded", zap.Int("keywords", len(d.Keywords())))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.Warn("keyword watcher error", zap.Error(err))
		}
	}
}

// LoadKeywords 每行一个关键词，忽略空行和 # 开头的行
func LoadKeywords(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseKeywords(f)
}

func ParseKeywords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		if w := strings.TrimSpace(line); w != "" {
			words = append(words, w)
		}
	}
	return words, scanner.Err()
}

func compileKeywords(words []string) []keywordPattern {
	patterns := make([]keywordPattern, 0, len(words))
	for _, w := range words {
		re, err := regexp.Compile(`(?i)` + leftBoundary(w) + regexp.QuoteMeta(w) + rightBoundary(w))
		if err != nil {
			continue
		}
		patterns = append(patterns, keywordPattern{word: w, re: re})
	}
	return patterns
}

// 整词边界按 Unicode 判断，RE2 的 \b 只认 ASCII 单词字符
const (
	wordClass    = `[\p{L}\p{M}\p{N}_]`
	nonWordClass = `[^\p{L}\p{M}\p{N}_]`
)

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}

// leftBoundary 关键词以单词字符开头时前面不能紧跟单词字符，反之前面必须是单词字符
func leftBoundary(w string) string {
	r, _ := utf8.DecodeRuneInString(w)
	if isWordRune(r) {
		return `(?:^|` + nonWordClass + `)`
	}
	return wordClass
}

func rightBoundary(w string) string {
	r, _ := utf8.DecodeLastRuneInString(w)
	if isWordRune(r) {
		return `(?:$|` + nonWordClass + `)`
	}
	return wordClass
}
