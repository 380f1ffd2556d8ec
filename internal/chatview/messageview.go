// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// Item structure classes.
const (
	ClassMessageItem  = "message-item"
	ClassThinking     = "thinking"
	ClassStreaming    = "streaming"
	ClassEphemeral    = "ephemeral"
	ClassSystemLayout = "system-message-layout"
	ClassAvatar       = "chat-avatar"
	ClassWrapper      = "details-and-bubble-wrapper"
	ClassNameTime     = "name-time-block"
	ClassSenderName   = "sender-name"
	ClassTimestamp    = "message-timestamp"
	ClassContent      = "md-content"
	ClassIndicator    = "thinking-indicator"
	ClassDots         = "thinking-indicator-dots"
	ClassAttachments  = "message-attachments"
	ClassThumbnail    = "message-attachment-image-thumbnail"
	ClassFileLink     = "message-attachment-file"
)

// Item attributes.
const (
	AttrMessageID   = "data-message-id"
	AttrTimestamp   = "data-timestamp"
	AttrFallbackSrc = "data-fallback-src"
	AttrPreview     = "data-preview"
	AttrPath        = "data-path"
)

// TimeLayout formats the time shown next to the sender name.
const TimeLayout = "15:04"

var schemePattern = regexp.MustCompile(`^(data:|[a-zA-Z][a-zA-Z0-9+.-]+://)`)

// =============================================================================
// RENDER
// =============================================================================

// RenderMessage builds and appends the item for msg.
//
// On initial load a thinking message is removed from the history instead and
// nil is returned. Outside initial load, settled messages are appended to
// the history and saved; a message whose id is already stored replaces the
// stored entry and its item in place. Thinking messages are shown but never
// stored.
func (v *View) RenderMessage(msg model.Message, isInitialLoad bool) *html.Node {
	if v.root == nil || v.refs.Parser == nil {
		v.logger.Error("cannot render message: view not initialized")
		return nil
	}
	msg.EnsureID()
	if msg.Timestamp == 0 {
		msg.Timestamp = model.NowMillis()
	}

	if isInitialLoad && msg.IsThinking {
		v.store.Remove(msg.ID)
		v.removeItem(msg.ID)
		return nil
	}
	if !isInitialLoad && msg.ID == v.activeID {
		v.logger.Warn("cannot render over the active stream", zap.String("message_id", msg.ID))
		return nil
	}

	item := v.attach(msg)
	if item == nil {
		return nil
	}
	if isInitialLoad || msg.IsThinking {
		return item
	}

	if stored, ok := v.store.Get(msg.ID); ok {
		*stored = msg.Clone()
		v.logger.Debug("message replaced", zap.String("message_id", msg.ID))
	} else if _, err := v.store.Append(msg); err != nil {
		v.logger.Warn("message not added to history",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return item
	}
	v.persist()
	return item
}

// attach builds the item for msg and appends it, replacing any item already
// shown for the id. The history is not touched.
func (v *View) attach(msg model.Message) *html.Node {
	if msg.Timestamp == 0 {
		msg.Timestamp = model.NowMillis()
	}
	item := v.build(&msg)

	if old := v.nodes[msg.ID]; old != nil && old.Parent != nil {
		old.Parent.InsertBefore(item, old)
		render.Detach(old)
	} else {
		v.root.AppendChild(item)
	}
	v.nodes[msg.ID] = item
	return item
}

func (v *View) build(msg *model.Message) *html.Node {
	item := render.NewElement("div",
		render.Class(ClassMessageItem, string(msg.Role)),
		render.Attr(AttrMessageID, msg.ID),
		render.Attr(AttrTimestamp, strconv.FormatInt(msg.Timestamp, 10)),
	)
	if msg.IsThinking {
		render.AddClass(item, ClassThinking)
	}

	content := render.NewElement("div", render.Class(ClassContent))

	if msg.Role == model.RoleSystem {
		render.AddClass(item, ClassSystemLayout)
		item.AppendChild(content)
	} else {
		name, src, fallback := v.sender(msg.Role)
		item.AppendChild(render.NewElement("img",
			render.Class(ClassAvatar),
			render.Attr("src", resolveAvatar(src, fallback)),
			render.Attr(AttrFallbackSrc, fallback),
			render.Attr("alt", name+" Avatar"),
		))

		wrapper := render.NewElement("div", render.Class(ClassWrapper))
		nameTime := render.NewElement("div", render.Class(ClassNameTime))
		sender := render.NewElement("div", render.Class(ClassSenderName))
		render.SetText(sender, name)
		nameTime.AppendChild(sender)
		if !msg.IsThinking {
			nameTime.AppendChild(timestampNode(msg.Timestamp))
		}
		wrapper.AppendChild(nameTime)
		wrapper.AppendChild(content)
		item.AppendChild(wrapper)
	}

	if msg.IsThinking {
		label := msg.Content
		if label == "" {
			label = LabelThinking
		}
		content.AppendChild(indicator(label))
		return item
	}

	v.paint(content, msg)
	return item
}

// sender returns the display name, avatar and fallback avatar for role.
func (v *View) sender(role model.Role) (name, src, fallback string) {
	if role == model.RoleUser {
		return v.userName, v.userAvatar, DefaultUserAvatar
	}
	name = v.agentName
	if name == "" {
		name = "AI"
	}
	return name, v.agentAvatar, DefaultAgentAvatar
}

// fill is the fast path: normalize, parse and replace the content.
func (v *View) fill(content *html.Node, text string) {
	markup, err := v.refs.Parser.Parse(render.Normalize(text))
	if err == nil {
		err = render.SetInnerHTML(content, markup)
	}
	if err != nil {
		v.logger.Warn("markdown render failed, showing raw text", zap.Error(err))
		render.SetText(content, text)
	}
}

// paint is the full pass: fill, image hooks, attachments, math, annotation.
func (v *View) paint(content *html.Node, msg *model.Message) {
	v.fill(content, msg.Content)
	markPreviewImages(content)
	if len(msg.Attachments) > 0 {
		content.AppendChild(attachmentsNode(msg.Attachments))
	}
	v.typesetter.Typeset(content)
	v.annotator.Annotate(content)
}

// ensureTimestamp adds the time to a name block that lacks one.
func (v *View) ensureTimestamp(item *html.Node, msg *model.Message) {
	nameTime := render.FindFirst(item, render.ByClass(ClassNameTime))
	if nameTime == nil || render.ChildElement(nameTime, ClassTimestamp) != nil {
		return
	}
	nameTime.AppendChild(timestampNode(msg.Timestamp))
	render.SetAttr(item, AttrTimestamp, strconv.FormatInt(msg.Timestamp, 10))
}

// =============================================================================
// NODE HELPERS
// =============================================================================

// contentOf returns the md-content node of an item.
func contentOf(item *html.Node) *html.Node {
	if item == nil {
		return nil
	}
	return render.FindFirst(item, render.ByClass(ClassContent))
}

func indicator(label string) *html.Node {
	span := render.NewElement("span", render.Class(ClassIndicator))
	span.AppendChild(render.NewText(label))
	dots := render.NewElement("span", render.Class(ClassDots))
	dots.AppendChild(render.NewText("..."))
	span.AppendChild(dots)
	return span
}

func timestampNode(ms int64) *html.Node {
	n := render.NewElement("div", render.Class(ClassTimestamp))
	render.SetText(n, time.UnixMilli(ms).Format(TimeLayout))
	return n
}

// resolveAvatar falls back when src is empty or a missing local file.
func resolveAvatar(src, fallback string) string {
	if src == "" {
		return fallback
	}
	if strings.HasPrefix(src, "file://") || !schemePattern.MatchString(src) {
		if _, err := os.Stat(strings.TrimPrefix(src, "file://")); err != nil {
			return fallback
		}
	}
	return src
}

// imageTitle is the preview title for an inline image.
func imageTitle(img *html.Node) string {
	if alt, _ := render.GetAttr(img, "alt"); alt != "" {
		return alt
	}
	src, _ := render.GetAttr(img, "src")
	if src != "" && !strings.HasPrefix(src, "data:") {
		if base := path.Base(strings.TrimPrefix(src, "file://")); base != "." && base != "/" {
			return base
		}
	}
	return "AI image"
}

// markPreviewImages tags content images so the host can open them.
func markPreviewImages(content *html.Node) {
	for _, img := range render.FindAll(content, render.ByTag("img")) {
		if render.HasClass(img, ClassThumbnail) {
			continue
		}
		render.SetAttr(img, AttrPreview, imageTitle(img))
	}
}

func attachmentsNode(atts []model.Attachment) *html.Node {
	box := render.NewElement("div", render.Class(ClassAttachments))
	for _, att := range atts {
		switch att.Kind() {
		case model.KindImage:
			box.AppendChild(render.NewElement("img",
				render.Class(ClassThumbnail),
				render.Attr("src", att.Src),
				render.Attr("alt", att.Name),
				render.Attr("title", att.Name),
				render.Attr(AttrPreview, att.Name),
			))
		case model.KindAudio:
			box.AppendChild(render.NewElement("audio",
				render.Attr("src", att.Src),
				render.Attr("controls", ""),
			))
		case model.KindVideo:
			box.AppendChild(render.NewElement("video",
				render.Attr("src", att.Src),
				render.Attr("controls", ""),
			))
		default:
			link := render.NewElement("a",
				render.Class(ClassFileLink),
				render.Attr("href", "#"),
				render.Attr(AttrPath, att.Path()),
			)
			render.SetText(link, "📄 "+att.Name)
			box.AppendChild(link)
		}
	}
	return box
}

// =============================================================================
// MEDIA ACTIONS
// =============================================================================

// previewImages lists the previewable images of a message in order.
func (v *View) previewImages(id string) []*html.Node {
	content := contentOf(v.nodes[id])
	if content == nil {
		return nil
	}
	return render.FindAll(content, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "img" {
			return false
		}
		_, ok := render.GetAttr(n, AttrPreview)
		return ok
	})
}

// ActivateImage opens the preview for the index-th image of a message.
func (v *View) ActivateImage(id string, index int) error {
	imgs := v.previewImages(id)
	if index < 0 || index >= len(imgs) {
		return ErrNoPreviewImage
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	src, _ := render.GetAttr(imgs[index], "src")
	title, _ := render.GetAttr(imgs[index], AttrPreview)
	v.refs.Shell.OpenImageInNewWindow(src, title)
	return nil
}

// ImageContextMenu asks the host for the image menu of the index-th image.
func (v *View) ImageContextMenu(id string, index int) error {
	imgs := v.previewImages(id)
	if index < 0 || index >= len(imgs) {
		return ErrNoPreviewImage
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	src, _ := render.GetAttr(imgs[index], "src")
	v.refs.Shell.ShowImageContextMenu(src)
	return nil
}

// ActivateAttachment opens the index-th attachment of a message: images in
// the preview, everything else with the system handler.
func (v *View) ActivateAttachment(id string, index int) error {
	m, ok := v.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	if index < 0 || index >= len(m.Attachments) {
		return ErrNotAttachment
	}
	if v.refs.Shell == nil {
		return ErrNoShell
	}
	att := m.Attachments[index]
	if att.Kind() == model.KindImage {
		v.refs.Shell.OpenImageInNewWindow(att.Src, att.Name)
		return nil
	}
	return v.refs.Shell.OpenPath(att.Path())
}
