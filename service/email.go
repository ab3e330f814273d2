package service

import (
	"fmt"
	"html"
	"strings"

	"qpcrml/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务，用于模型晋级通知
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// NotifyPromotion 发送版本晋级通知
func (s *EmailService) NotifyPromotion(ev PromotionEvent) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用，请配置 QPCRML_EMAIL_ENABLED=true")
	}
	if len(s.cfg.Recipients) == 0 {
		return fmt.Errorf("未配置通知收件人")
	}

	subject := fmt.Sprintf("【qPCR 曲线分类】%s/%s 模型晋级至 %s", ev.PathogenCode, ev.Fluorophore, ev.ToVersion)
	body := s.generatePromotionEmailBody(ev)

	return s.sendEmail(s.cfg.Recipients, subject, body)
}

// generatePromotionEmailBody 生成晋级邮件内容
func (s *EmailService) generatePromotionEmailBody(ev PromotionEvent) string {
	phase := "继续学习"
	if strings.HasSuffix(ev.FromVersion, ".0") {
		phase = "教学期已结束"
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; }
        .header { background: #0f766e; color: white; padding: 24px; text-align: center; }
        .content { padding: 30px; color: #333; line-height: 1.8; }
        table { border-collapse: collapse; width: 100%%; }
        td { border: 1px solid #e5e7eb; padding: 8px 12px; }
        .footer { background: #f8f9fa; padding: 16px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>模型版本晋级</h1></div>
        <div class="content">
            <p>%s</p>
            <table>
                <tr><td>模型类型</td><td>%s</td></tr>
                <tr><td>病原体</td><td>%s</td></tr>
                <tr><td>通道</td><td>%s</td></tr>
                <tr><td>版本</td><td>%s → %s</td></tr>
                <tr><td>训练样本数</td><td>%d</td></tr>
                <tr><td>时间</td><td>%s</td></tr>
            </table>
        </div>
        <div class="footer"><p>此邮件由系统自动发送，请勿回复</p></div>
    </div>
</body>
</html>
`, phase,
		html.EscapeString(ev.ModelType),
		html.EscapeString(ev.PathogenCode),
		html.EscapeString(ev.Fluorophore),
		html.EscapeString(ev.FromVersion),
		html.EscapeString(ev.ToVersion),
		ev.SampleCount,
		ev.At.Format("2006-01-02 15:04:05"))
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to []string, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}
