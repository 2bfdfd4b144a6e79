package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, request_id, product, product_type, audience, goal, language, style, status, brief_json, ad_text, variants_json, image_file, banner_file, banner_url, qa_status, qa_report_json, error_message, created_at, updated_at, completed_at, progress_stage, progress_percent, progress_message, last_heartbeat, needs_review, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		requestID        string
		product          string
		productType      sql.NullString
		audience         sql.NullString
		goal             sql.NullString
		language         sql.NullString
		style            sql.NullString
		statusStr        string
		briefJSON        sql.NullString
		adText           sql.NullString
		variantsJSON     sql.NullString
		imageFile        sql.NullString
		bannerFile       sql.NullString
		bannerURL        sql.NullString
		qaStatus         sql.NullString
		qaReportJSON     sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		completedRaw     sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&requestID,
		&product,
		&productType,
		&audience,
		&goal,
		&language,
		&style,
		&statusStr,
		&briefJSON,
		&adText,
		&variantsJSON,
		&imageFile,
		&bannerFile,
		&bannerURL,
		&qaStatus,
		&qaReportJSON,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		RequestID:       requestID,
		Product:         product,
		ProductType:     productType.String,
		Audience:        audience.String,
		Goal:            goal.String,
		Language:        language.String,
		Style:           style.String,
		Status:          Status(statusStr),
		BriefJSON:       briefJSON.String,
		AdText:          adText.String,
		VariantsJSON:    variantsJSON.String,
		ImageFile:       imageFile.String,
		BannerFile:      bannerFile.String,
		BannerURL:       bannerURL.String,
		QAStatus:        qaStatus.String,
		QAReportJSON:    qaReportJSON.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}
	item.ReviewReason = reviewReason.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
