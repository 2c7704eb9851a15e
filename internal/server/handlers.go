package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/moghouse/gearsweep/internal/analyzer"
	"github.com/moghouse/gearsweep/pkg/checklist"
	"github.com/moghouse/gearsweep/pkg/gearswap"
	"github.com/moghouse/gearsweep/pkg/inventory"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.Store.Load()
	if err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"has_checklist": false,
			"state_error":   err.Error(),
		})
		return
	}
	if state == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"has_checklist": false,
			"message":       "No checklist loaded. Upload files to analyze.",
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"has_checklist":  true,
		"inventory_file": state.InventoryFile,
		"lua_files":      state.ScriptFiles,
		"total_items":    len(state.Entries),
		"checked_count":  state.CheckedCount(),
		"created_at":     state.CreatedAt,
		"updated_at":     state.UpdatedAt,
	})
}

type checklistItem struct {
	Key         string `json:"key"`
	ItemName    string `json:"item_name"`
	DisplayName string `json:"display_name"`
	Augments    string `json:"augments"`
	Checked     bool   `json:"checked"`
	Notes       string `json:"notes"`
}

type checklistContainer struct {
	Container string          `json:"container"`
	Items     []checklistItem `json:"items"`
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	state, err := s.Store.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if state == nil {
		http.Error(w, "No checklist loaded", http.StatusNotFound)
		return
	}

	// SortedEntries already groups containers into contiguous runs.
	var containers []checklistContainer
	for _, e := range state.SortedEntries() {
		item := checklistItem{
			Key:         e.Key,
			ItemName:    e.ItemName,
			DisplayName: e.DisplayName(),
			Augments:    e.Augment,
			Checked:     e.Checked,
			Notes:       e.Note,
		}
		if n := len(containers); n > 0 && containers[n-1].Container == e.ContainerName {
			containers[n-1].Items = append(containers[n-1].Items, item)
		} else {
			containers = append(containers, checklistContainer{Container: e.ContainerName, Items: []checklistItem{item}})
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_items":   len(state.Entries),
		"checked_count": state.CheckedCount(),
		"containers":    containers,
	})
}

type updateItemRequest struct {
	Key     string  `json:"key"`
	Checked bool    `json:"checked"`
	Note    *string `json:"note"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := s.Store.Mutate(func(st *checklist.State) error {
		if err := st.SetChecked(req.Key, req.Checked); err != nil {
			return err
		}
		if req.Note != nil {
			return st.SetNote(req.Key, *req.Note)
		}
		return nil
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, checklist.ErrNotFound) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       true,
		"checked_count": state.CheckedCount(),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// An unreadable prior state must be acknowledged before it is replaced.
	_, loadErr := s.Store.Load()
	if loadErr != nil && r.FormValue("force") != "true" {
		http.Error(w, fmt.Sprintf("Previous progress could not be loaded (%s). Re-submit with force=true to start fresh.", loadErr), http.StatusConflict)
		return
	}

	invFile, invHeader, err := r.FormFile("inventory_csv")
	if err != nil {
		http.Error(w, "inventory_csv file is required", http.StatusBadRequest)
		return
	}
	defer invFile.Close()

	items, skipped, err := inventory.ParseCSV(invFile)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error parsing inventory CSV: %s", err), http.StatusBadRequest)
		return
	}

	scripts, err := readScriptUploads(r.MultipartForm.File["lua_files"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(scripts) == 0 {
		http.Error(w, "at least one lua file is required", http.StatusBadRequest)
		return
	}

	if loadErr != nil {
		if err := s.Store.Clear(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	summary, err := analyzer.Run(s.Cfg, analyzer.Inputs{
		Scripts:       scripts,
		InventoryName: invHeader.Filename,
		Inventory:     items,
		SkippedRows:   skipped,
	}, s.Store, s.Hist)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":         true,
		"gearswap_items":  summary.Refs,
		"inventory_items": summary.Items,
		"skipped_rows":    summary.SkippedRows,
		"orphaned_items":  len(summary.Orphans),
		"added":           summary.Merge.Added,
		"updated":         summary.Merge.Updated,
		"retained":        summary.Merge.Retained,
	})
}

func readScriptUploads(headers []*multipart.FileHeader) ([]gearswap.ScriptFile, error) {
	var scripts []gearswap.ScriptFile
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", h.Filename, err)
		}
		scripts = append(scripts, gearswap.ScriptFile{Name: h.Filename, Text: string(data)})
	}
	return scripts, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadForExport(w)
	if state == nil || err != nil {
		return
	}
	data, err := state.ToJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	name := "gearsweep_checklist_" + time.Now().Format("20060102_150405") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Write(data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadForExport(w)
	if state == nil || err != nil {
		return
	}
	name := "gearsweep_checklist_" + time.Now().Format("20060102_150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Write(state.ToCSV())
}

func (s *Server) loadForExport(w http.ResponseWriter) (*checklist.State, error) {
	state, err := s.Store.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	if state == nil {
		http.Error(w, "No checklist loaded", http.StatusNotFound)
		return nil, nil
	}
	return state, nil
}

func (s *Server) handleLoadState(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, _, err := r.FormFile("state_file")
	if err != nil {
		http.Error(w, "state_file is required", http.StatusBadRequest)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := checklist.ValidateJSON(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to load state: %s", err), http.StatusBadRequest)
		return
	}
	state, err := checklist.FromJSON(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load state: %s", err), http.StatusBadRequest)
		return
	}
	if err := s.Store.Replace(state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       true,
		"total_items":   len(state.Entries),
		"checked_count": state.CheckedCount(),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Clear(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
