package engine

import (
	"fmt"

	"spreadnet/internal/network"
)

// DemoPhrases are the two-word phrases the demo model recognizes.
var DemoPhrases = [][2]string{
	{"new", "york"},
	{"san", "francisco"},
	{"machine", "learning"},
}

// DemoSenses are ambiguous words whose competing bindings inhibit each
// other. The first entry is the word.
var DemoSenses = [][]string{
	{"bank", "river", "money"},
}

// BuildDemoModel adds the demo network to m: per phrase a relation between
// its tokens, one binding neuron per word feeding a phrase pattern with
// positive feedback and a category, and per ambiguous word one binding per
// sense under a shared inhibitory neuron. Call it once per model.
func BuildDemoModel(m *network.Model) error {
	cat, _, err := m.GetOrCreateNeuron("category:phrase", network.KindCategory, 0)
	if err != nil {
		return err
	}

	for _, p := range DemoPhrases {
		name := p[0] + "_" + p[1]
		pat, _, err := m.GetOrCreateNeuron("pattern:"+name, network.KindPattern, -0.2)
		if err != nil {
			return err
		}
		if _, err := m.NewSynapse(network.KindCategoryInput, pat, cat, 1); err != nil {
			return err
		}

		var toks [2]*network.Neuron
		for i, word := range p {
			tok, _, err := m.GetOrCreateNeuron(TokenLabel(word), network.KindToken, 0)
			if err != nil {
				return err
			}
			toks[i] = tok
			bind, _, err := m.GetOrCreateNeuron(fmt.Sprintf("binding:%s@%s", word, name), network.KindBinding, 0)
			if err != nil {
				return err
			}
			if _, err := m.NewSynapse(network.KindPrimaryInput, tok, bind, 1); err != nil {
				return err
			}
			if _, err := m.NewSynapse(network.KindPatternInput, bind, pat, 0.5); err != nil {
				return err
			}
			if _, err := m.NewSynapse(network.KindPositiveFeedback, pat, bind, 0.2); err != nil {
				return err
			}
		}
		rel := network.WithRange(network.Range{Begin: 1, End: 1})
		if _, err := m.NewSynapse(network.KindRelation, toks[0], toks[1], 0.1, rel); err != nil {
			return err
		}
	}

	for _, entry := range DemoSenses {
		word, senses := entry[0], entry[1:]
		tok, _, err := m.GetOrCreateNeuron(TokenLabel(word), network.KindToken, 0)
		if err != nil {
			return err
		}
		inh, _, err := m.GetOrCreateNeuron("inhibitory:"+word, network.KindInhibitory, 0)
		if err != nil {
			return err
		}
		for _, sense := range senses {
			bind, _, err := m.GetOrCreateNeuron(fmt.Sprintf("binding:%s/%s", word, sense), network.KindBinding, 0)
			if err != nil {
				return err
			}
			if _, err := m.NewSynapse(network.KindPrimaryInput, tok, bind, 1); err != nil {
				return err
			}
			if _, err := m.NewSynapse(network.KindInhibitoryInput, bind, inh, 1); err != nil {
				return err
			}
			if _, err := m.NewSynapse(network.KindNegativeFeedback, inh, bind, 0.5); err != nil {
				return err
			}
		}
	}
	return nil
}
