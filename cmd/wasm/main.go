//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/leetdraw/leetdraw/internal/engine"
	"github.com/leetdraw/leetdraw/internal/problem"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine(configuredOptions()...)

	// Create the engine API object
	leetdrawEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	leetdrawEngine.Set("resize", js.FuncOf(resize))
	leetdrawEngine.Set("setTool", js.FuncOf(setTool))
	leetdrawEngine.Set("setStyle", js.FuncOf(setStyle))
	leetdrawEngine.Set("setPadding", js.FuncOf(setPadding))
	leetdrawEngine.Set("pointerDown", js.FuncOf(pointerDown))
	leetdrawEngine.Set("pointerMove", js.FuncOf(pointerMove))
	leetdrawEngine.Set("pointerUp", js.FuncOf(pointerUp))
	leetdrawEngine.Set("eraseAt", js.FuncOf(eraseAt))
	leetdrawEngine.Set("clear", js.FuncOf(clear))
	leetdrawEngine.Set("loadDocument", js.FuncOf(loadDocument))
	leetdrawEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))

	// --- Queries (frontend ← backend) ---
	leetdrawEngine.Set("render", js.FuncOf(render))
	leetdrawEngine.Set("hitTest", js.FuncOf(hitTest))
	leetdrawEngine.Set("getDocument", js.FuncOf(getDocument))
	leetdrawEngine.Set("getState", js.FuncOf(getState))
	leetdrawEngine.Set("problemIdFromUrl", js.FuncOf(problemIDFromURL))

	js.Global().Set("leetdrawEngine", leetdrawEngine)
	js.Global().Set("leetdrawWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// configuredOptions reads window.leetdrawConfig, which the extension fills
// from the server's /api/engine response before loading the module.
func configuredOptions() []engine.ModelOption {
	cfg := js.Global().Get("leetdrawConfig")
	if cfg.Type() != js.TypeObject {
		return nil
	}
	if p := cfg.Get("boundsPadding"); p.Type() == js.TypeNumber {
		return []engine.ModelOption{engine.WithPadding(p.Float())}
	}
	return nil
}

// --- Command Handlers ---

func resize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.Resize(args[0].Float(), args[1].Float())
	return nil
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing tool"})
	}
	if err := eng.SetTool(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func setStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetStyle(args[0].String(), args[1].Float())
	return nil
}

func setPadding(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return js.ValueOf(map[string]interface{}{"error": "missing padding"})
	}
	eng.SetPadding(args[0].Float())
	return ok()
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerDown(args[0].Float(), args[1].Float())
	return nil
}

// pointerMove returns the preview commands as JSON.
func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("[]")
	}
	preview := eng.PointerMove(args[0].Float(), args[1].Float())
	result, err := engine.DrawCommandsToJSON(preview)
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(result)
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if err := eng.PointerUp(); err != nil {
		return fail(err)
	}
	return ok()
}

func eraseAt(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(0)
	}
	return js.ValueOf(eng.EraseAt(args[0].Float(), args[1].Float()))
}

func clear(this js.Value, args []js.Value) interface{} {
	eng.Clear()
	return nil
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	if err := eng.LoadDocument(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	if err := eng.LoadSampleDocument(); err != nil {
		return fail(err)
	}
	return ok()
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.RenderJSON())
}

// hitTest returns {indices, bounds} as JSON.
func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("{}")
	}
	x, y := args[0].Float(), args[1].Float()
	data, err := json.Marshal(map[string]interface{}{
		"indices": eng.HitTest(x, y),
		"bounds":  eng.HitBounds(x, y),
	})
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getDocument(this js.Value, args []js.Value) interface{} {
	doc, err := eng.Document()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(doc)
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.State())
}

func problemIDFromURL(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("")
	}
	id, _ := problem.FromURL(args[0].String())
	return js.ValueOf(id)
}
