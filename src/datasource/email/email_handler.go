// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TableAttachmentHandler 把邮件里的表格附件(csv/xlsx)落盘到数据目录
type TableAttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewTableAttachmentHandler(subject, dataDir string) *TableAttachmentHandler {
	return &TableAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *TableAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *TableAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件：保存其中的表格附件
func (h *TableAttachmentHandler) Handle(email *Email) error {
	if h.isProcessed(email.UID) {
		return nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		fmt.Printf("跳过主题不匹配的邮件: %s\n", email.Subject)
		return nil
	}

	fmt.Printf("\n处理邮件: %s\n发件人: %s\n日期: %s\n",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05"))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %v", err)
	}

	hasTable := false
	for _, attachment := range email.Attachments {
		ext := strings.ToLower(filepath.Ext(attachment.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		fmt.Println("找到表格附件:", attachment.Filename)

		filePath := filepath.Join(h.DataDir, attachment.Filename)
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return fmt.Errorf("保存附件失败: %v", err)
		}

		fmt.Printf("附件已保存到: %s\n", filePath)
		hasTable = true
	}

	if hasTable {
		h.markAsProcessed(email.UID)
	}

	return nil
}
