package loader

// Corpus is the raw content of one or more script files, before
// compilation. Records keep their declaration order and source position.
type Corpus struct {
	Sets     []SetDef
	Vars     []VarDef
	Topics   []TopicDef
	Triggers []TriggerDef
}

// SetDef declares a concept set. A member written @other includes the
// members of set other.
type SetDef struct {
	Name    string
	Members []string
	File    string
	Line    int
}

// VarDef sets a bot variable default.
type VarDef struct {
	Name  string
	Value string
	File  string
	Line  int
}

// TopicDef declares a topic. Repeated declarations of one name merge.
type TopicDef struct {
	Name      string
	Parent    string
	Inherits  []string
	Exclusive bool
	File      string
	Line      int
}

// TriggerDef is one trigger block. Every pattern shares the replies and
// conditions.
type TriggerDef struct {
	Topic      string
	Patterns   []string
	Replies    []ReplyDef
	Conditions []ConditionDef
	File       string
	Line       int
}

// ReplyDef is one weighted reply template.
type ReplyDef struct {
	Text   string
	Weight int
}

// ConditionDef is an "expr => reply" branch.
type ConditionDef struct {
	Expr  string
	Reply string
	Line  int
}

// Merge appends o's records after c's.
func (c *Corpus) Merge(o *Corpus) {
	if o == nil {
		return
	}
	c.Sets = append(c.Sets, o.Sets...)
	c.Vars = append(c.Vars, o.Vars...)
	c.Topics = append(c.Topics, o.Topics...)
	c.Triggers = append(c.Triggers, o.Triggers...)
}
