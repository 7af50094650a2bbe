// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/commands"
	"github.com/ipapadil7-star/nexus/internal/generate"
	"github.com/ipapadil7-star/nexus/internal/model"
	"github.com/ipapadil7-star/nexus/internal/session"
	"github.com/ipapadil7-star/nexus/internal/storage"
	"github.com/ipapadil7-star/nexus/internal/util"
)

const (
	CategorySession = "Sesi"
	CategoryGeneral = "Umum"
)

// FilterOff clears the image-style filter.
const FilterOff = "off"

const (
	panelUsage = "Format: /panel <nomor> <narasi baru> atau /panel <nomor> --gambar"
	redrawFlag = "gambar"
)

// BusyMessage is shown when a submission arrives during a generation.
const BusyMessage = "Sabar, masih ada yang lagi dibuat. Tunggu selesai dulu."

const (
	confirmHint  = " Ketik /ya atau /tidak."
	pendingReply = "Masih ada konfirmasi yang menunggu. Jawab /ya atau /tidak dulu."
)

func (o *Orchestrator) localCommands() []*commands.Command {
	return []*commands.Command{
		{Name: "/help", Aliases: []string{"/bantuan"}, Description: "Tampilkan daftar perintah", Category: CategoryGeneral, Local: o.help},
		{Name: "/terminal", Description: "Buka terminal simulasi", Category: CategoryGeneral, Local: o.terminal},
		{Name: "/keluar", Aliases: []string{"/exit", "/quit"}, Description: "Keluar dari NEXUS", Category: CategoryGeneral, Local: o.quit},
		{Name: "/bersihkan", Aliases: []string{"/clear"}, Description: "Hapus semua pesan", Category: CategorySession, Local: o.clear},
		{Name: "/persona", Usage: "/persona [nexus|akbar|asisten]", Description: "Ganti persona chat", Category: CategorySession, Local: o.persona},
		{Name: "/ya", Aliases: []string{"/yes"}, Description: "Setujui konfirmasi yang menunggu", Category: CategorySession, Local: o.confirm},
		{Name: "/tidak", Aliases: []string{"/no", "/batal"}, Description: "Batalkan konfirmasi yang menunggu", Category: CategorySession, Local: o.cancel},
		{Name: "/ulang", Aliases: []string{"/retry"}, Description: "Ulangi permintaan yang gagal terakhir", Category: CategorySession, Local: o.retry},
		{Name: "/lampirkan", Aliases: []string{"/attach"}, Usage: "/lampirkan <path>", Description: "Lampirkan file ke pesan berikutnya", Category: CategorySession, Local: o.attach},
		{Name: "/simpan", Aliases: []string{"/save"}, Description: "Simpan percakapan ke file", Category: CategorySession, Local: o.save},
		{Name: "/filter", Usage: "/filter <gaya|off>", Description: "Tampilkan gambar dengan gaya tertentu saja", Category: CategorySession, Local: o.setFilter},
		{Name: "/perintah", Usage: "/perintah tambah|hapus|daftar|ekspor|impor", Description: "Kelola perintah kustom", Category: CategorySession, Local: o.macros},
		{Name: "/komik", Aliases: []string{"/comic"}, Usage: "/komik [ide cerita]", Description: "Mulai komik baru", Category: generate.CategoryComic, Local: o.comic},
		{Name: "/tamat", Aliases: []string{"/end"}, Description: "Akhiri komik yang sedang jalan", Category: generate.CategoryComic, Local: o.endComic},
		{Name: "/panel", Usage: "/panel <nomor> [narasi] [--gambar]", Description: "Ubah narasi panel komik atau gambar ulang", Category: generate.CategoryComic, Local: o.amendPanel},
		{Name: "/sistem", Aliases: []string{"/system"}, Description: "Tampilkan instruksi sistem persona aktif", Category: CategorySession, Local: o.systemPrompt},
	}
}

// runLocal executes a local command. Errors become a plain reply; local
// commands are not retried.
func (o *Orchestrator) runLocal(ctx context.Context, cmd *commands.Command, in commands.Input) {
	err := cmd.Local(ctx, in.Args)
	if err == nil {
		return
	}
	if errors.Is(err, ErrBusy) {
		o.d.Timeline.AddModel(BusyMessage)
		return
	}
	c := apperr.Classify(err)
	o.logger.Debug("local command failed", zap.String("command", cmd.Name), zap.Error(err))
	o.d.Timeline.AddModel(c.Message)
}

// -----------------------------------------------------------------------------
// General
// -----------------------------------------------------------------------------

func (o *Orchestrator) help(context.Context, string) error {
	o.emit(Effect{Kind: EffectHelp, Text: o.d.Registry.HelpText()})
	return nil
}

func (o *Orchestrator) terminal(context.Context, string) error {
	o.emit(Effect{Kind: EffectTerminal})
	return nil
}

func (o *Orchestrator) quit(context.Context, string) error {
	o.emit(Effect{Kind: EffectQuit})
	return nil
}

// -----------------------------------------------------------------------------
// Confirmations
// -----------------------------------------------------------------------------

// ask records c and shows its prompt.
func (o *Orchestrator) ask(c session.Confirmation) error {
	if err := o.d.Sessions.RequestConfirmation(c); err != nil {
		if errors.Is(err, session.ErrConfirmationPending) {
			return apperr.Wrap(apperr.BadRequest, err, pendingReply)
		}
		return err
	}
	o.d.Timeline.AddModel(c.Prompt() + confirmHint)
	return nil
}

func (o *Orchestrator) clear(context.Context, string) error {
	return o.ask(session.Confirmation{Kind: session.ConfirmClearChat})
}

func (o *Orchestrator) persona(_ context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		names := make([]string, len(session.Personas))
		for i, p := range session.Personas {
			names[i] = string(p)
		}
		o.notice("Persona sekarang: %s. Pilihan: %s.", o.d.Sessions.Persona().DisplayName(), strings.Join(names, ", "))
		return nil
	}
	p, err := session.ParsePersona(args)
	if err != nil {
		return err
	}
	if p == o.d.Sessions.Persona() {
		o.notice("Sudah pakai persona %s.", p.DisplayName())
		return nil
	}
	return o.ask(session.Confirmation{Kind: session.ConfirmStyleChange, Persona: p})
}

func (o *Orchestrator) confirm(ctx context.Context, _ string) error {
	return o.Confirm(ctx)
}

func (o *Orchestrator) cancel(context.Context, string) error {
	return o.Cancel()
}

// Confirm applies the pending destructive action.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	c, err := o.d.Sessions.TakeConfirmation()
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, err, "Nggak ada yang perlu dikonfirmasi.")
	}
	o.logger.Info("confirmed", zap.String("kind", string(c.Kind)))

	switch c.Kind {
	case session.ConfirmClearChat:
		o.d.Timeline.Clear()
		o.d.Sessions.Reset()
	case session.ConfirmStyleChange:
		o.d.Sessions.SetPersona(c.Persona)
		o.d.Timeline.Clear()
		o.notice("Persona diganti ke %s.", c.Persona.DisplayName())
	case session.ConfirmDeleteCommand:
		if err := o.d.Registry.DeleteMacro(ctx, c.Name); err != nil {
			return err
		}
		o.notice("Perintah /%s dihapus.", c.Name)
	case session.ConfirmOverwriteCommand:
		m, err := o.d.Registry.SaveMacro(ctx, c.Name, c.Text)
		if err != nil {
			return err
		}
		o.notice("Perintah /%s diperbarui.", m.Name)
	}
	return nil
}

// Cancel drops the pending confirmation.
func (o *Orchestrator) Cancel() error {
	if _, err := o.d.Sessions.TakeConfirmation(); err != nil {
		return apperr.Wrap(apperr.BadRequest, err, "Nggak ada yang perlu dibatalkan.")
	}
	o.notice("Oke, dibatalkan.")
	return nil
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

func (o *Orchestrator) retry(ctx context.Context, _ string) error {
	return o.Retry(ctx)
}

func (o *Orchestrator) attach(_ context.Context, args string) error {
	path := strings.TrimSpace(args)
	if path == "" || path == "batal" {
		if o.StagedAttachment() == "" {
			return apperr.NewBadRequest("Kasih path file-nya. Contoh: /lampirkan foto.png")
		}
		o.Stage("")
		o.notice("Lampiran dibatalkan.")
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, err, fmt.Sprintf("File %s tidak bisa dibuka.", path))
	}
	if info.IsDir() {
		return apperr.NewBadRequest("%s itu folder, bukan file.", path)
	}
	if _, ok := model.MIMETypeFor(path); !ok {
		return apperr.NewUnsupported("Tipe file %s tidak didukung. Pakai gambar atau PDF.", path)
	}
	o.Stage(path)
	o.notice("File `%s` siap dilampirkan ke pesan berikutnya.", path)
	return nil
}

func (o *Orchestrator) save(context.Context, string) error {
	if o.d.Transcripts == nil {
		return apperr.NewUnsupported("Penyimpanan percakapan tidak tersedia.")
	}
	path, err := o.d.Transcripts.Save(o.d.Timeline.Messages())
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	o.notice("Percakapan disimpan ke `%s`.", path)
	return nil
}

func (o *Orchestrator) setFilter(_ context.Context, args string) error {
	style := strings.ToLower(strings.TrimSpace(args))
	switch style {
	case "", FilterOff, "semua":
		o.mu.Lock()
		o.filter = ""
		o.mu.Unlock()
		o.emit(Effect{Kind: EffectFilter})
		o.notice("Filter gambar dimatikan.")
		return nil
	}
	if generate.StylePhrase(style) == "" {
		return apperr.NewBadRequest("Gaya %q tidak dikenal. Pilihan: %s.", style, strings.Join(generate.ImageStyleNames, ", "))
	}
	o.mu.Lock()
	o.filter = style
	o.mu.Unlock()
	o.emit(Effect{Kind: EffectFilter, Text: style})
	o.notice("Cuma menampilkan gambar bergaya %s.", style)
	return nil
}

// -----------------------------------------------------------------------------
// Macros
// -----------------------------------------------------------------------------

func (o *Orchestrator) macros(ctx context.Context, args string) error {
	sub, rest := commands.FirstWord(args)
	switch strings.ToLower(sub) {
	case "tambah", "add":
		name, text := commands.FirstWord(rest)
		return o.addMacro(ctx, name, text)
	case "hapus", "delete":
		return o.deleteMacro(rest)
	case "", "daftar", "list":
		o.listMacros()
		return nil
	case "ekspor", "export":
		return o.exportMacros(rest)
	case "impor", "import":
		return o.importMacros(ctx, rest)
	default:
		return apperr.NewBadRequest("Sub-perintah %q tidak dikenal. Pakai tambah, hapus, daftar, ekspor atau impor.", sub)
	}
}

func (o *Orchestrator) addMacro(ctx context.Context, name, text string) error {
	if name == "" {
		return apperr.NewBadRequest("Format: /perintah tambah <nama> <isi>")
	}
	name, exists, err := o.d.Registry.CheckMacro(name, text)
	if err != nil {
		return err
	}
	if exists {
		return o.ask(session.Confirmation{Kind: session.ConfirmOverwriteCommand, Name: name, Text: strings.TrimSpace(text)})
	}
	m, err := o.d.Registry.SaveMacro(ctx, name, text)
	if err != nil {
		return err
	}
	o.notice("Perintah /%s tersimpan.", m.Name)
	return nil
}

func (o *Orchestrator) deleteMacro(name string) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return apperr.NewBadRequest("Format: /perintah hapus <nama>")
	}
	m, ok := o.d.Registry.Macro(name)
	if !ok {
		return apperr.Wrap(apperr.BadRequest, commands.ErrMacroNotFound, fmt.Sprintf("Perintah /%s tidak ditemukan.", name))
	}
	return o.ask(session.Confirmation{Kind: session.ConfirmDeleteCommand, Name: m.Name})
}

func (o *Orchestrator) listMacros() {
	list := o.d.Registry.Macros()
	if len(list) == 0 {
		o.notice("Belum ada perintah kustom. Buat dengan /perintah tambah <nama> <isi>.")
		return
	}
	var b strings.Builder
	b.WriteString("**Perintah kustom:**\n\n")
	for _, m := range list {
		fmt.Fprintf(&b, "- `/%s` %s\n", m.Name, util.TruncateRunes(m.Text, 60))
	}
	o.d.Timeline.AddModel(strings.TrimRight(b.String(), "\n"))
}

func (o *Orchestrator) exportMacros(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return apperr.NewBadRequest("Format: /perintah ekspor <file.yaml>")
	}
	list := o.d.Registry.Macros()
	var buf bytes.Buffer
	if err := storage.ExportMacros(&buf, list); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("export macros: %w", err)
	}
	o.notice("%d perintah diekspor ke `%s`.", len(list), path)
	return nil
}

func (o *Orchestrator) importMacros(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return apperr.NewBadRequest("Format: /perintah impor <file.yaml>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, err, fmt.Sprintf("File %s tidak bisa dibaca.", path))
	}
	list, err := storage.ImportMacros(bytes.NewReader(data))
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, err, "Isi file perintah tidak valid.")
	}
	saved, skipped := 0, 0
	for _, m := range list {
		if _, err := o.d.Registry.SaveMacro(ctx, m.Name, m.Text); err != nil {
			o.logger.Debug("macro skipped", zap.String("name", m.Name), zap.Error(err))
			skipped++
			continue
		}
		saved++
	}
	if skipped > 0 {
		o.notice("%d perintah diimpor, %d dilewati.", saved, skipped)
	} else {
		o.notice("%d perintah diimpor.", saved)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Comic
// -----------------------------------------------------------------------------

func (o *Orchestrator) comic(_ context.Context, args string) error {
	idea := strings.TrimSpace(args)
	if err := o.d.Sessions.RequestComic(idea); err != nil {
		if errors.Is(err, session.ErrComicActive) {
			o.d.Timeline.AddModel(generate.ComicActiveMessage)
			return nil
		}
		return err
	}
	text := "Gaya apa yang lo mau buat komik ini?"
	if idea == "" {
		text = "Belum ada ide? Santai. Pilih gayanya dulu, ceritanya nyusul."
	}
	text += fmt.Sprintf(" Pilih dengan /gaya <gaya>: %s.", strings.Join(generate.StoryStyles, ", "))
	o.d.Timeline.Append(model.Message{Role: model.RoleModel, Text: text, IsStyleSelector: true})
	return nil
}

func (o *Orchestrator) endComic(context.Context, string) error {
	if !o.d.Sessions.EndComic() {
		o.notice("Nggak ada komik yang lagi jalan.")
		return nil
	}
	o.notice("Tamat. Komiknya udah ditutup.")
	return nil
}

func (o *Orchestrator) amendPanel(ctx context.Context, args string) error {
	num, rest := commands.FirstWord(args)
	n, err := strconv.Atoi(strings.TrimPrefix(num, "#"))
	if err != nil || n < 1 {
		return apperr.NewBadRequest("%s", panelUsage)
	}
	text, flags := commands.ParseFlags(rest)
	text = strings.TrimSpace(text)
	_, redraw := flags.Get(redrawFlag)
	if text == "" && !redraw {
		return apperr.NewBadRequest("Narasi panel #%d tidak boleh kosong.", n)
	}
	if _, ok := o.d.Timeline.Panel(n); !ok {
		return apperr.NewBadRequest("Panel #%d belum ada.", n)
	}

	if text != "" {
		if _, err := o.d.Timeline.AmendPanel(n, text); err != nil {
			return panelErr(n, err)
		}
		o.notice("Narasi panel #%d diperbarui.", n)
	}
	if redraw {
		return o.redrawPanel(ctx, n)
	}
	return nil
}

// redrawPanel renders panel n's image again from its stored prompt. It
// holds the submission gate for the call.
func (o *Orchestrator) redrawPanel(ctx context.Context, n int) error {
	if o.d.Panels == nil {
		return apperr.NewUnsupported("Gambar ulang panel belum tersedia.")
	}
	if !o.busy.CompareAndSwap(false, true) {
		o.d.Metrics.SubmissionRejected()
		return ErrBusy
	}
	defer o.busy.Store(false)

	panel, ok := o.d.Timeline.Panel(n)
	if !ok {
		return apperr.NewBadRequest("Panel #%d belum ada.", n)
	}
	path, err := o.d.Panels.RedrawPanel(ctx, panel.ComicImagePrompt, n)
	if err != nil {
		return err
	}
	if _, err := o.d.Timeline.SetPanelImage(n, path); err != nil {
		return panelErr(n, err)
	}
	o.notice("Gambar panel #%d digambar ulang.", n)
	return nil
}

func panelErr(n int, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return apperr.Wrap(apperr.BadRequest, err, fmt.Sprintf("Panel #%d belum ada.", n))
	}
	return err
}

// systemPrompt shows the active persona's instruction.
func (o *Orchestrator) systemPrompt(context.Context, string) error {
	p := o.d.Sessions.Persona()
	o.notice("**Instruksi sistem %s**\n\n%s", p.DisplayName(), p.Instruction())
	return nil
}

// Reconfigure applies a reloaded persona and OCR setting. A persona
// change from the config file drops the chat and comic sessions but
// keeps the timeline.
func (o *Orchestrator) Reconfigure(p session.Persona, ocr bool) {
	o.d.Sessions.SetOCR(ocr)
	if p == "" || p == o.d.Sessions.Persona() {
		return
	}
	o.d.Sessions.SetPersona(p)
	o.notice("Persona diganti ke %s dari konfigurasi.", p.DisplayName())
}
