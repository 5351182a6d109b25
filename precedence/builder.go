package precedence

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// builderOptions mirrors the functional-options shape used throughout this
// module (grounded on eventloop.Option): an unexported struct folded by
// unexported apply methods, behind an opaque BuilderOption interface.
type builderOptions struct {
	sink *logiface.Logger[logiface.Event]
}

// BuilderOption configures a GraphBuilder.
type BuilderOption interface {
	applyBuilder(*builderOptions)
}

type builderOptionFunc func(*builderOptions)

func (f builderOptionFunc) applyBuilder(o *builderOptions) { f(o) }

// WithBuilderLogSink attaches a structured logging sink used to report
// construction diagnostics (e.g. the accelerated-wins-over-blocking
// warning).
func WithBuilderLogSink(sink *logiface.Logger[logiface.Event]) BuilderOption {
	return builderOptionFunc(func(o *builderOptions) { o.sink = sink })
}

func resolveBuilderOptions(opts []BuilderOption) builderOptions {
	var o builderOptions
	for _, opt := range opts {
		if opt != nil {
			opt.applyBuilder(&o)
		}
	}
	return o
}

// GraphBuilder incrementally assembles a precedence Graph. Nodes are
// appended to an arena and referenced by the stable NodeIndex returned from
// each Add call; Build resolves data dependencies, runs the topology
// validators, and freezes the result.
type GraphBuilder struct {
	opts builderOptions

	nodes    []Node
	byName   map[string]NodeIndex
	dataByID map[string]NodeIndex

	head         NodeIndex
	nextAlgIndex int

	errs []error
}

// NewGraphBuilder creates a builder with a single root DecisionNode named
// headName, configured by flags.
func NewGraphBuilder(headName string, flags DecisionFlags, opts ...BuilderOption) *GraphBuilder {
	b := &GraphBuilder{
		opts:     resolveBuilderOptions(opts),
		byName:   make(map[string]NodeIndex),
		dataByID: make(map[string]NodeIndex),
	}
	b.head = b.addNode(Node{
		Kind:     KindDecision,
		Name:     headName,
		decision: &DecisionNode{Flags: flags},
	})
	return b
}

// Head returns the NodeIndex of the root decision node.
func (b *GraphBuilder) Head() NodeIndex { return b.head }

func (b *GraphBuilder) addNode(n Node) NodeIndex {
	idx := NodeIndex(len(b.nodes))
	n.Index = idx
	b.nodes = append(b.nodes, n)
	if n.Name != "" {
		if _, exists := b.byName[n.Name]; exists {
			b.errs = append(b.errs, &TopologyError{Op: "add", Names: []string{n.Name}, err: ErrDuplicateName})
		} else {
			b.byName[n.Name] = idx
		}
	}
	return idx
}

// AddDecisionHub registers a nested DecisionNode as a child of parent.
// parent must already refer to a KindDecision node.
func (b *GraphBuilder) AddDecisionHub(parent NodeIndex, name string, flags DecisionFlags) NodeIndex {
	if !b.checkDecisionParent(parent, name) {
		return -1
	}
	idx := b.addNode(Node{
		Kind:     KindDecision,
		Name:     name,
		decision: &DecisionNode{Flags: flags, Parents: []NodeIndex{parent}},
	})
	b.nodes[parent].decision.Children = append(b.nodes[parent].decision.Children, idx)
	return idx
}

func (b *GraphBuilder) checkDecisionParent(parent NodeIndex, name string) bool {
	if int(parent) < 0 || int(parent) >= len(b.nodes) || b.nodes[parent].Kind != KindDecision {
		b.errs = append(b.errs, &TopologyError{Op: "add", Names: []string{name}, err: fmt.Errorf("%w: parent is not a decision node", ErrUnknownNode)})
		return false
	}
	return true
}

// AddAlgorithm registers an algorithm as a child of the decision node
// parent. Its declared Inputs/Outputs identifiers are resolved (creating
// KindData nodes on first reference) at Build time.
func (b *GraphBuilder) AddAlgorithm(parent NodeIndex, spec AlgorithmSpec) NodeIndex {
	if !b.checkDecisionParent(parent, spec.Name) {
		return -1
	}
	if spec.Flags.Blocking && spec.Flags.Accelerated {
		if b.opts.sink != nil {
			b.opts.sink.Warning().Str(`algorithm`, spec.Name).Log("blocking and accelerated both set; accelerated wins")
		}
	}
	algIdx := b.nextAlgIndex
	b.nextAlgIndex++
	idx := b.addNode(Node{
		Kind: KindAlgorithm,
		Name: spec.Name,
		algorithm: &AlgorithmNode{
			Spec:     spec,
			AlgIndex: algIdx,
			Parents:  []NodeIndex{parent},
		},
	})
	b.nodes[parent].decision.Children = append(b.nodes[parent].decision.Children, idx)
	return idx
}

// AddCondition registers a condition data node (e.g. an alignment or
// calibration tag) resolved by handle rather than by a producing
// algorithm. Algorithm inputs are resolved in Build, so it only has to be
// called before Build; an input id with no condition registered by then
// resolves to an ordinary (producer-less) KindData node instead.
func (b *GraphBuilder) AddCondition(id string, handle ConditionsService) {
	idx := b.addNode(Node{
		Kind: KindCondition,
		Name: id,
		data: &DataNode{ID: id, Handle: handle},
	})
	b.dataByID[id] = idx
}

func (b *GraphBuilder) dataNode(id string) NodeIndex {
	if idx, ok := b.dataByID[id]; ok {
		return idx
	}
	idx := b.addNode(Node{
		Kind: KindData,
		Name: id,
		data: &DataNode{ID: id},
	})
	b.dataByID[id] = idx
	return idx
}

// Build resolves data-flow edges between the registered algorithms and
// runs the topology validators, returning the frozen Graph.
func (b *GraphBuilder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, joinBuildErrors(b.errs)
	}

	for i := range b.nodes {
		n := &b.nodes[i]
		if n.Kind != KindAlgorithm {
			continue
		}
		alg := n.algorithm
		for _, id := range alg.Spec.Inputs {
			dIdx := b.dataNode(id)
			d := b.nodes[dIdx].data
			d.Consumers = append(d.Consumers, n.Index)
			alg.Inputs = append(alg.Inputs, dIdx)
		}
		for _, id := range alg.Spec.Outputs {
			dIdx := b.dataNode(id)
			d := b.nodes[dIdx].data
			d.Producers = append(d.Producers, n.Index)
			alg.Outputs = append(alg.Outputs, dIdx)
		}
	}

	g := &Graph{
		nodes:    b.nodes,
		byName:   b.byName,
		dataByID: b.dataByID,
		head:     b.head,
		sink:     b.opts.sink,
	}

	if err := validateProducers(g); err != nil {
		return nil, err
	}
	if err := validateAcyclic(g); err != nil {
		return nil, err
	}
	if err := validateHeadSingular(g); err != nil {
		return nil, err
	}
	if err := validateFlagContradictions(g); err != nil {
		return nil, err
	}

	g.algOrder = make([]NodeIndex, b.nextAlgIndex)
	for i := range g.nodes {
		if g.nodes[i].Kind == KindAlgorithm {
			g.algOrder[g.nodes[i].algorithm.AlgIndex] = g.nodes[i].Index
		}
	}

	return g, nil
}

func joinBuildErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := "precedence: multiple build errors:"
	for _, e := range errs {
		msg += " [" + e.Error() + "]"
	}
	return fmt.Errorf("%s", msg)
}
