// Package render formats resolutions for Discord embeds and terminals.
//
// All display defaults live here: the store keeps records exactly as read.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/resbot/internal/resolution"
)

// Discord limits that shape the embed. Lengths count characters.
const (
	// TitleLimit is the maximum length of an embed title.
	TitleLimit = 256
	// DescriptionLimit is the maximum length of an embed description.
	DescriptionLimit = 4096
	// FieldValueLimit is the maximum length of an embed field value.
	FieldValueLimit = 1024
	// MaxFields is the maximum number of fields in one embed.
	MaxFields = 25
	// TotalLimit caps the title, description, field names and field
	// values of one embed combined.
	TotalLimit = 6000
)

// Ellipsis marks text cut to fit a limit.
const Ellipsis = "…"

// DefaultColor is the embed side-bar color.
const DefaultColor = 0x2b2d31

// Placeholder is shown for absent or empty optional values.
const Placeholder = "—"

// Field names used in the embed.
const (
	FieldCaseNumber  = "Case Number"
	FieldType        = "Type"
	FieldSubmittedBy = "Submitted By"
	FieldDate        = "Date"
	FieldSignatories = "Signatories"
	FieldClauses     = "Operative Clauses"
	FieldContinued   = "Continued"
)

// Title returns the display title: the record's title, or "Case <number>".
func Title(rec resolution.Record) string {
	if strings.TrimSpace(rec.Title) != "" {
		return rec.Title
	}
	return "Case " + rec.CaseNumber
}

// Signatories returns the comma-joined signatories or the placeholder.
func Signatories(rec resolution.Record) string {
	return orPlaceholder(strings.Join(rec.Signatories, ", "))
}

// Body returns the numbered operative clauses followed by the conclusion.
func Body(rec resolution.Record) string {
	var b strings.Builder
	for i, clause := range rec.OperativeClauses {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(clause)
	}
	b.WriteString("\n\n**Conclusion**\n")
	b.WriteString(orPlaceholder(rec.Conclusion))
	return b.String()
}

// Embed builds the Discord embed for a resolution.
//
// The clause body is split across "Operative Clauses" and "Continued"
// fields when it exceeds FieldValueLimit. The title, description and
// metadata values are cut to their own limits first; the description then
// yields to TotalLimit, and body fields stop once the total is spent. The
// last field shown ends in Ellipsis when the body was cut.
func Embed(rec resolution.Record, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: Truncate(Title(rec), TitleLimit),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			metaField(FieldCaseNumber, orPlaceholder(rec.CaseNumber), true),
			metaField(FieldType, orPlaceholder(rec.Type), true),
			metaField(FieldSubmittedBy, orPlaceholder(rec.SubmittedBy), true),
			metaField(FieldDate, orPlaceholder(rec.Date), true),
			metaField(FieldSignatories, Signatories(rec), false),
		},
	}

	body := Body(rec)
	used := utf8.RuneCountInString(embed.Title)
	for _, f := range embed.Fields {
		used += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	// Keep room for the first body field.
	reserve := utf8.RuneCountInString(FieldClauses) + min(FieldValueLimit, utf8.RuneCountInString(body))
	embed.Description = Truncate(orPlaceholder(rec.Preamble), min(DescriptionLimit, TotalLimit-used-reserve))
	used += utf8.RuneCountInString(embed.Description)

	for i, chunk := range Chunk(body, FieldValueLimit) {
		name := FieldClauses
		if i > 0 {
			name = FieldContinued
		}
		room := TotalLimit - used - utf8.RuneCountInString(name)
		if len(embed.Fields) == MaxFields || room <= 0 {
			if i > 0 {
				markCut(embed.Fields[len(embed.Fields)-1])
			}
			break
		}
		value := Truncate(chunk, room)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: value})
		used += utf8.RuneCountInString(name) + utf8.RuneCountInString(value)
		if value != chunk {
			break
		}
	}
	return embed
}

// markCut ends f's value in Ellipsis without growing it.
func markCut(f *discordgo.MessageEmbedField) {
	f.Value = Truncate(f.Value+Ellipsis, utf8.RuneCountInString(f.Value))
}

func metaField(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: Truncate(value, FieldValueLimit), Inline: inline}
}

// Truncate returns s if it fits in limit characters, otherwise its longest
// prefix that fits with Ellipsis appended. Cuts fall between normalization
// segments.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	budget := limit - utf8.RuneCountInString(Ellipsis)
	if budget <= 0 {
		return Ellipsis
	}

	var (
		b  strings.Builder
		n  int
		it norm.Iter
	)
	it.InitString(norm.NFC, s)
	for !it.Done() {
		seg := it.Next()
		runes := utf8.RuneCount(seg)
		if n+runes > budget {
			break
		}
		b.Write(seg)
		n += runes
	}
	b.WriteString(Ellipsis)
	return b.String()
}

// Chunk splits s into pieces of at most size characters. Splits only fall
// between normalization segments, so a base character is never separated
// from its combining marks. When s is split, the pieces are NFC-normalized.
func Chunk(s string, size int) []string {
	if utf8.RuneCountInString(s) <= size {
		return []string{s}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
		it     norm.Iter
	)
	it.InitString(norm.NFC, s)
	for !it.Done() {
		seg := it.Next()
		runes := utf8.RuneCount(seg)
		if n > 0 && n+runes > size {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
		cur.Write(seg)
		n += runes
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Text renders a resolution for a terminal.
func Text(rec resolution.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Title(rec))
	fmt.Fprintf(&b, "%s\n\n", orPlaceholder(rec.Preamble))
	fmt.Fprintf(&b, "%-13s %s\n", FieldCaseNumber+":", orPlaceholder(rec.CaseNumber))
	fmt.Fprintf(&b, "%-13s %s\n", FieldType+":", orPlaceholder(rec.Type))
	fmt.Fprintf(&b, "%-13s %s\n", FieldSubmittedBy+":", orPlaceholder(rec.SubmittedBy))
	fmt.Fprintf(&b, "%-13s %s\n", FieldDate+":", orPlaceholder(rec.Date))
	fmt.Fprintf(&b, "%-13s %s\n\n", FieldSignatories+":", Signatories(rec))
	fmt.Fprintf(&b, "%s\n%s\n", FieldClauses, Body(rec))
	return b.String()
}

// Summary renders one line per record: case number, date, title.
func Summary(records []resolution.Record) string {
	if len(records) == 0 {
		return "No resolutions."
	}
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s — %s — %s", rec.CaseNumber, orPlaceholder(rec.Date), Title(rec))
	}
	return b.String()
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
