// Command tsftrain trains a style transfer model on two
// corpora of differently styled sentences.
package main

import (
	"flag"
	"log"
	"math"
	"os"

	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/tsf"
)

func main() {
	var configPath string
	var style0Path, style1Path string
	var outPath string
	var epochs int
	var minCount int
	var rho float64
	var gamma, gammaDecay, gammaMin float64

	flag.StringVar(&configPath, "config", "", "JSON hyperparameter file (optional)")
	flag.StringVar(&style0Path, "style0", "", "sentences with style 0")
	flag.StringVar(&style1Path, "style1", "", "sentences with style 1")
	flag.StringVar(&outPath, "out", "tsf_model", "model output path")
	flag.IntVar(&epochs, "epochs", 20, "training epochs")
	flag.IntVar(&minCount, "mincount", 5, "minimum word count for the vocabulary")
	flag.Float64Var(&rho, "rho", 1, "adversarial loss weight")
	flag.Float64Var(&gamma, "gamma", 1, "initial Gumbel-softmax temperature")
	flag.Float64Var(&gammaDecay, "gamma-decay", 0.5, "temperature decay per epoch")
	flag.Float64Var(&gammaMin, "gamma-min", 0.001, "minimum temperature")
	flag.Parse()

	if style0Path == "" || style1Path == "" {
		essentials.Die("Required flags: -style0 and -style1")
	}

	style0, err := ReadSentences(style0Path)
	if err != nil {
		essentials.Die(err)
	}
	style1, err := ReadSentences(style1Path)
	if err != nil {
		essentials.Die(err)
	}
	vocab := NewVocab(minCount, style0, style1)
	log.Printf("loaded %d + %d sentences (vocab size %d)", len(style0), len(style1),
		len(vocab.Words))

	hp := tsf.DefaultHParams()
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			essentials.Die(err)
		}
		config, err := tsf.DecodeHParams(f)
		f.Close()
		if err != nil {
			essentials.Die(err)
		}
		hp = *config
	}
	hp.VocabSize = len(vocab.Words)
	if err := hp.Validate(); err != nil {
		essentials.Die(err)
	}

	model, err := loadOrCreate(outPath, hp)
	if err != nil {
		essentials.Die(err)
	}

	for epoch := 0; epoch < epochs; epoch++ {
		batches := Batches(vocab, style0, style1, hp.BatchSize, hp.MaxLen)
		if len(batches) == 0 {
			essentials.Die("not enough sentences for one batch")
		}
		var lossG, lossD float64
		var adversarial int
		for i, b := range batches {
			report, err := model.TrainBatch(b, rho, gamma)
			if err != nil {
				essentials.Die(err)
			}
			lossG += report.Generator.LossG
			lossD += report.D0.LossD0 + report.D1.LossD1
			if report.Adversarial {
				adversarial++
			}
			if i%100 == 0 {
				log.Printf("epoch %d batch %d: loss=%f loss_g=%f ppl_g=%f loss_d0=%f loss_d1=%f",
					epoch, i, report.Generator.Loss, report.Generator.LossG,
					math.Exp(report.Generator.PPLG), report.D0.LossD0, report.D1.LossD1)
			}
		}
		count := float64(len(batches))
		log.Printf("epoch %d: gamma=%f loss_g=%f loss_d=%f adversarial=%d/%d",
			epoch, gamma, lossG/count, lossD/count, adversarial, len(batches))
		logTransfers(model, vocab, batches[0])

		if err := model.Save(outPath); err != nil {
			essentials.Die(err)
		}
		gamma = math.Max(gammaMin, gamma*gammaDecay)
	}
}

func loadOrCreate(path string, hp tsf.HParams) (*tsf.Model, error) {
	if _, err := os.Stat(path); err == nil {
		log.Println("loading existing model...")
		model, err := tsf.LoadModel(path)
		if err != nil {
			return nil, err
		}
		if model.HParams.VocabSize != hp.VocabSize {
			return nil, essentials.AddCtx("load model",
				errVocabMismatch(model.HParams.VocabSize, hp.VocabSize))
		}
		return model, nil
	}
	log.Println("creating new model...")
	return tsf.NewModel(anyvec32.CurrentCreator(), hp)
}

func logTransfers(m *tsf.Model, v *Vocab, b *tsf.Batch) {
	ori, tsfLogits, err := m.DecodeHard(b)
	if err != nil {
		essentials.Die(err)
	}
	for i := 0; i < 2 && i < len(ori); i++ {
		log.Printf("  original: %s", v.Sentence(b.Targets[i]))
		log.Printf("  rebuilt:  %s", v.Sentence(argMax(ori[i])))
		log.Printf("  transfer: %s", v.Sentence(argMax(tsfLogits[i])))
	}
}
