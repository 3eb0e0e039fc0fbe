package loader

import (
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/parley/types"
)

// Marker keys on tables returned by the helpers.
const (
	markTrigger  = "__trigger"
	markWeighted = "__weighted"
	markAlias    = "__alias"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Set("name", { "a", "b c", "@other" })
	L.SetGlobal("Set", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		members := L.CheckTable(2)
		coll.out.Sets = append(coll.out.Sets, SetDef{
			Name:    name,
			Members: stringList(members),
			File:    coll.file,
			Line:    callerLine(L),
		})
		return 0
	}))

	// Bot { name = "nano", mood = "happy" }
	L.SetGlobal("Bot", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		line := callerLine(L)
		var vars []VarDef
		tbl.ForEach(func(k, v lua.LValue) {
			ks, ok := k.(lua.LString)
			if !ok {
				return
			}
			vars = append(vars, VarDef{Name: string(ks), Value: v.String(), File: coll.file, Line: line})
		})
		// Table iteration order is unspecified.
		sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
		coll.out.Vars = append(coll.out.Vars, vars...)
		return 0
	}))

	// Trigger "pattern" { ... } or Trigger { "a", "b" } { ... }, curried.
	// Returns a marker table so Topic can claim the trigger.
	L.SetGlobal("Trigger", L.NewFunction(func(L *lua.LState) int {
		var patterns []string
		switch v := L.Get(1).(type) {
		case lua.LString:
			patterns = []string{string(v)}
		case *lua.LTable:
			patterns = stringList(v)
		default:
			L.ArgError(1, "pattern string or list expected")
		}
		line := callerLine(L)

		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			def := TriggerDef{
				Topic:    types.BaselineTopic,
				Patterns: patterns,
				File:     coll.file,
				Line:     line,
			}
			compileTriggerTable(L, tbl, &def)
			coll.out.Triggers = append(coll.out.Triggers, def)

			marker := L.NewTable()
			marker.RawSetString(markTrigger, lua.LNumber(len(coll.out.Triggers)-1))
			L.Push(marker)
			return 1
		}))
		return 1
	}))

	// Topic "name" { parent = "x", inherits = {...}, exclusive = true, triggers = {...} }
	L.SetGlobal("Topic", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		line := callerLine(L)

		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.out.Topics = append(coll.out.Topics, TopicDef{
				Name:      name,
				Parent:    getString(tbl, "parent"),
				Inherits:  stringList(getTable(tbl, "inherits")),
				Exclusive: getBool(tbl, "exclusive", false),
				File:      coll.file,
				Line:      line,
			})

			triggers := getTable(tbl, "triggers")
			if triggers == nil {
				return 0
			}
			for i := 1; i <= triggers.MaxN(); i++ {
				m, ok := triggers.RawGetInt(i).(*lua.LTable)
				if !ok {
					L.RaiseError("Topic %q: triggers[%d] is not a Trigger block", name, i)
				}
				idx, ok := m.RawGetString(markTrigger).(lua.LNumber)
				if !ok {
					L.RaiseError("Topic %q: triggers[%d] is not a Trigger block", name, i)
				}
				coll.out.Triggers[int(idx)].Topic = name
			}
			return 0
		}))
		return 1
	}))
}

// compileTriggerTable reads replies, conditions, a redirect and aliases
// from a Trigger body.
func compileTriggerTable(L *lua.LState, tbl *lua.LTable, def *TriggerDef) {
	// Alias markers live in the array part.
	for i := 1; i <= tbl.MaxN(); i++ {
		if m, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			if p := getString(m, markAlias); p != "" {
				def.Patterns = append(def.Patterns, p)
			}
		}
	}

	if s := getString(tbl, "reply"); s != "" {
		def.Replies = append(def.Replies, ReplyDef{Text: s, Weight: 1})
	}
	if replies := getTable(tbl, "replies"); replies != nil {
		for i := 1; i <= replies.MaxN(); i++ {
			switch v := replies.RawGetInt(i).(type) {
			case lua.LString:
				def.Replies = append(def.Replies, ReplyDef{Text: string(v), Weight: 1})
			case *lua.LTable:
				if !getBool(v, markWeighted, false) {
					L.RaiseError("replies[%d]: use a string or Weighted(n, text)", i)
				}
				def.Replies = append(def.Replies, ReplyDef{
					Text:   getString(v, "text"),
					Weight: getInt(v, "weight", 1),
				})
			default:
				L.RaiseError("replies[%d]: use a string or Weighted(n, text)", i)
			}
		}
	}
	if target := getString(tbl, "redirect"); target != "" {
		def.Replies = append(def.Replies, ReplyDef{Text: "{@ " + target + "}", Weight: 1})
	}

	if conds := getTable(tbl, "conditions"); conds != nil {
		for i := 1; i <= conds.MaxN(); i++ {
			c, ok := conds.RawGetInt(i).(*lua.LTable)
			if !ok {
				L.RaiseError("conditions[%d]: use When(expr, reply)", i)
			}
			def.Conditions = append(def.Conditions, ConditionDef{
				Expr:  getString(c, "expr"),
				Reply: getString(c, "reply"),
				Line:  getInt(c, "line", def.Line),
			})
		}
	}
}

func registerHelpers(L *lua.LState) {
	// Weighted(3, "text")
	L.SetGlobal("Weighted", L.NewFunction(func(L *lua.LState) int {
		weight := L.CheckInt(1)
		text := L.CheckString(2)
		tbl := L.NewTable()
		tbl.RawSetString(markWeighted, lua.LTrue)
		tbl.RawSetString("weight", lua.LNumber(weight))
		tbl.RawSetString("text", lua.LString(text))
		L.Push(tbl)
		return 1
	}))

	// When("<bot mood> == happy", "reply")
	L.SetGlobal("When", L.NewFunction(func(L *lua.LState) int {
		expr := L.CheckString(1)
		reply := L.CheckString(2)
		tbl := L.NewTable()
		tbl.RawSetString("expr", lua.LString(expr))
		tbl.RawSetString("reply", lua.LString(reply))
		tbl.RawSetString("line", lua.LNumber(callerLine(L)))
		L.Push(tbl)
		return 1
	}))

	// Alias("other pattern")
	L.SetGlobal("Alias", L.NewFunction(func(L *lua.LState) int {
		pattern := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString(markAlias, lua.LString(pattern))
		L.Push(tbl)
		return 1
	}))
}
