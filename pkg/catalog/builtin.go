package catalog

import (
	"github.com/charlie0129/vetcalc/pkg/calculator"
)

const (
	groupAnesthesia  = "Anesthesia & Analgesia"
	groupConverters  = "Converters"
	groupDiagnostics = "Diagnostics & Monitoring"
	groupEmergency   = "Emergency & Critical Care"
	groupPharmacy    = "Pharmacology & Dosing"
	groupFluids      = "Fluid Therapy & Electrolytes"
	groupNutrition   = "Nutrition"
	groupTransfusion = "Transfusion"
)

func v(name, key, unit string) calculator.Variable {
	return calculator.Variable{Name: name, Key: key, Unit: unit}
}

// Builtins returns a fresh copy of the built-in calculators.
func Builtins() []calculator.Calculator {
	out := make([]calculator.Calculator, len(builtins))
	for i, c := range builtins {
		c.Type = calculator.TypeBuiltin
		out[i] = c.Clone()
	}
	return out
}

var builtins = []calculator.Calculator{
	// Anesthesia & Analgesia
	{
		ID:          "builtin-doggie-kitty-magic",
		Name:        "Sedation: Doggie & Kitty Magic",
		Description: "Volumes for a sedation protocol with dexmedetomidine, ketamine and an opioid.",
		Group:       groupAnesthesia,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Dexmedetomidine conc.", "dex_conc", "mg/ml"),
			v("Ketamine conc.", "ket_conc", "mg/ml"),
			v("Opioid conc. (butorphanol/buprenorphine)", "opioid_conc", "mg/ml"),
		},
		Formula: `const dex_dose = 0.01; const ket_dose = 5; const opioid_dose = 0.2;
const dex_vol = (weight * dex_dose) / dex_conc;
const ket_vol = (weight * ket_dose) / ket_conc;
const opioid_vol = (weight * opioid_dose) / opioid_conc;
return 'Dex: ' + dex_vol.toFixed(3) + 'ml, Ket: ' + ket_vol.toFixed(3) + 'ml, Opioid: ' + opioid_vol.toFixed(3) + 'ml';`,
		HelpText: `Volumes for the common "Magic" protocol, mixed in one syringe. Give IM.

Doses used by the formula:
- Dexmedetomidine: 0.01 mg/kg (10 mcg/kg)
- Ketamine: 5 mg/kg
- Opioid (butorphanol/buprenorphine): 0.2 mg/kg

Doses may be adjusted to the patient. This combination gives deep sedation.`,
	},
	{
		ID:          "builtin-gma-protocol",
		Name:        "Pre-Visit Calming Protocol (GMA)",
		Description: "Doses of the gabapentin, melatonin and acepromazine calming protocol for dogs.",
		Group:       groupAnesthesia,
		Variables: []calculator.Variable{
			v("Dog weight", "weight", "kg"),
		},
		Formula: `const gaba_dose = 20; const mel_dose = 5; const ace_dose = 0.02;
const gaba_total = weight * gaba_dose;
const mel_total = mel_dose;
const ace_total = weight * ace_dose;
return 'Gaba: ' + gaba_total.toFixed(1) + 'mg, Melatonin: ' + mel_total + 'mg, Ace: ' + ace_total.toFixed(2) + 'mg';`,
		HelpText: `Total doses of the GMA protocol (gabapentin, melatonin, acepromazine), given orally by the owner before the visit.

Doses used:
- Gabapentin: 20 mg/kg
- Melatonin: 5 mg (fixed dose for most dogs)
- Acepromazine: 0.02 mg/kg

Give 2-3 hours before the visit. Results are in mg to ease compounding or tablet use.`,
	},
	{
		ID:          "builtin-flk-cri",
		Name:        "FLK Constant Rate Infusion",
		Description: "Volume of fentanyl, lidocaine and ketamine (FLK) to add to 100 ml of fluid.",
		Group:       groupAnesthesia,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Fluid rate", "fluidRate", "ml/h"),
		},
		Formula: `const f_dose = 5; const l_dose = 50; const k_dose_dog = 10; const k_dose_cat = 5;
const f_conc = 0.05; const l_conc = 20; const k_conc = 100;
const calcVol = (dose, conc) => ((dose * weight * 60) / (conc * 1000) / fluidRate) * 100;
const f_vol = calcVol(f_dose, f_conc);
const l_vol = calcVol(l_dose, l_conc);
const k_vol_dog = calcVol(k_dose_dog, k_conc);
const k_vol_cat = calcVol(k_dose_cat, k_conc);
return 'Dogs: F(' + f_vol.toFixed(2) + 'ml), L(' + l_vol.toFixed(2) + 'ml), K(' + k_vol_dog.toFixed(2) + 'ml). Cats: ... K(' + k_vol_cat.toFixed(2) + 'ml)';`,
		ResultUnit: "ml/100ml of fluid",
		HelpText: `Volumes for a standard FLK protocol.

Doses used by the formula:
- Fentanyl: 5 mcg/kg/min
- Lidocaine: 50 mcg/kg/min
- Ketamine: 10 mcg/kg/min (dogs), 5 mcg/kg/min (cats)

Lidocaine is for dogs. A lidocaine CRI in cats is controversial and needs far lower doses and close monitoring.`,
	},

	// Converters
	{
		ID:          "builtin-kg-to-lbs",
		Name:        "Converter: kilograms to pounds",
		Description: "Converts weight from kilograms (kg) to pounds (lbs).",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Weight in kilograms", "kg", "kg")},
		Formula:     `return kg * 2.20462`,
		ResultUnit:  "lbs",
		HelpText:    "Converts the patient weight from kilograms to pounds. 1 kg = 2.20462 lbs.",
	},
	{
		ID:          "builtin-lbs-to-kg",
		Name:        "Converter: pounds to kilograms",
		Description: "Converts weight from pounds (lbs) to kilograms (kg).",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Weight in pounds", "lbs", "lbs")},
		Formula:     `return lbs / 2.20462`,
		ResultUnit:  "kg",
		HelpText:    "Converts the patient weight from pounds to kilograms. 1 lb = 0.453592 kg.",
	},
	{
		ID:          "builtin-c-to-f",
		Name:        "Converter: Celsius to Fahrenheit",
		Description: "Converts temperature from degrees Celsius to Fahrenheit.",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Temperature in Celsius", "celsius", "°C")},
		Formula:     `return (celsius * 1.8) + 32`,
		ResultUnit:  "°F",
		HelpText:    "Standard Celsius to Fahrenheit conversion.",
	},
	{
		ID:          "builtin-f-to-c",
		Name:        "Converter: Fahrenheit to Celsius",
		Description: "Converts temperature from degrees Fahrenheit to Celsius.",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Temperature in Fahrenheit", "fahrenheit", "°F")},
		Formula:     `return (fahrenheit - 32) / 1.8`,
		ResultUnit:  "°C",
		HelpText:    "Standard Fahrenheit to Celsius conversion.",
	},
	{
		ID:          "builtin-percent-to-mgml",
		Name:        "Converter: % to mg/ml",
		Description: "Converts a solution concentration from percent to mg/ml.",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Concentration", "percent", "%")},
		Formula:     `return percent * 10`,
		ResultUnit:  "mg/ml",
		HelpText: `An X% solution holds X grams in 100 ml.
Example: dextrose 50% = 500 mg/ml. Lidocaine 2% = 20 mg/ml.`,
	},
	{
		ID:          "builtin-mgml-to-percent",
		Name:        "Converter: mg/ml to %",
		Description: "Converts a solution concentration from mg/ml to percent.",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Concentration", "mgml", "mg/ml")},
		Formula:     `return mgml / 10`,
		ResultUnit:  "%",
		HelpText: `Converts mg/ml to percent (g/100ml).
Example: a 50 mg/ml solution is a 5% solution.`,
	},
	{
		ID:          "builtin-g-to-kg",
		Name:        "Converter: grams to kilograms",
		Description: "Converts weight from grams (g) to kilograms (kg).",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Weight in grams", "g", "g")},
		Formula:     `return g / 1000`,
		ResultUnit:  "kg",
		HelpText:    "For very small patients (exotics, neonates) weighed in grams. 1000 g = 1 kg.",
	},
	{
		ID:          "builtin-kg-to-g",
		Name:        "Converter: kilograms to grams",
		Description: "Converts weight from kilograms (kg) to grams (g).",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Weight in kilograms", "kg", "kg")},
		Formula:     `return kg * 1000`,
		ResultUnit:  "g",
		HelpText:    "Useful for dilutions or doses expressed per gram. 1 kg = 1000 g.",
	},
	{
		ID:          "builtin-l-to-ml",
		Name:        "Converter: liters to milliliters",
		Description: "Converts volume from liters (L) to milliliters (ml).",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Volume in liters", "l", "L")},
		Formula:     `return l * 1000`,
		ResultUnit:  "ml",
		HelpText:    "1 liter is 1000 milliliters.",
	},
	{
		ID:          "builtin-ml-to-l",
		Name:        "Converter: milliliters to liters",
		Description: "Converts volume from milliliters (ml) to liters (L).",
		Group:       groupConverters,
		Variables:   []calculator.Variable{v("Volume in milliliters", "ml", "ml")},
		Formula:     `return ml / 1000`,
		ResultUnit:  "L",
		HelpText:    "1000 milliliters is 1 liter.",
	},

	// Diagnostics & Monitoring
	{
		ID:          "builtin-acth-stim-test",
		Name:        "ACTH Stimulation Test",
		Description: "Cosyntropin dose for the ACTH stimulation test.",
		Group:       groupDiagnostics,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Cosyntropin dose", "dose", "mcg/kg"),
			v("Concentration (reconstituted)", "concentration", "mcg/ml"),
		},
		Formula:    `return (weight * dose) / concentration`,
		ResultUnit: "ml",
		HelpText: `The gold standard to diagnose hypoadrenocorticism (Addison's) and to monitor hyperadrenocorticism (Cushing's).

Standard protocol (dogs):
- Dose: 5 mcg/kg (at most 250 mcg).
- Reconstitution: one 250 mcg vial with 1 ml of diluent gives 250 mcg/ml.
- Procedure: draw a baseline sample, give the dose IV, draw the second sample 1 hour later.`,
	},
	{
		ID:          "builtin-hac-prediction",
		Name:        "Hyperadrenocorticism Prediction",
		Description: "Estimates the probability of hyperadrenocorticism (Cushing's) from blood work.",
		Group:       groupDiagnostics,
		Variables: []calculator.Variable{
			v("Alkaline phosphatase (ALP)", "alp", "U/L"),
			v("Cholesterol", "chol", "mg/dL"),
			v("Urine specific gravity", "usg", ""),
			v("Platelet count", "plt", "x10³/μL"),
		},
		Formula:    `const p = 1 / (1 + Math.exp(-(-12.2 + (0.007 * alp) + (0.019 * chol) - (2.99 * usg) + (0.004 * plt)))); return (p * 100).toFixed(2)`,
		ResultUnit: "% probability",
		HelpText: `A logistic regression model that helps decide whether specific tests for hyperadrenocorticism (HAC) are warranted. It is not a diagnostic test.

A high probability raises the suspicion of HAC and supports tests such as the low-dose dexamethasone suppression test. A low probability makes HAC less likely.`,
	},
	{
		ID:          "builtin-glasgow-coma-scale",
		Name:        "Modified Glasgow Coma Scale",
		Description: "Sums the category scores to assess the level of consciousness.",
		Group:       groupDiagnostics,
		Variables: []calculator.Variable{
			v("Motor score", "motor_score", "1-6"),
			v("Brainstem score", "brainstem_score", "1-6"),
			v("Consciousness score", "consciousness_score", "1-6"),
		},
		Formula:    `return motor_score + brainstem_score + consciousness_score`,
		ResultUnit: "points (3-18)",
		HelpText: `Add the three category scores for the total (3-18).

Score and prognosis:
- 15-18: good
- 9-14: guarded
- 3-8: poor

Use the standard Modified Glasgow Coma Scale tables for the species to score each category.`,
	},
	{
		ID:          "builtin-corrected-calcium",
		Name:        "Albumin-Corrected Calcium",
		Description: "Adjusts measured total calcium for serum albumin.",
		Group:       groupDiagnostics,
		Variables: []calculator.Variable{
			v("Measured total calcium", "totalCa", "mg/dL"),
			v("Serum albumin", "albumin", "g/dL"),
		},
		Formula:    `return totalCa - albumin + 3.5`,
		ResultUnit: "mg/dL",
		HelpText: `Hypoalbuminemia can cause pseudohypocalcemia. This corrects total calcium to estimate the physiologically active calcium.

Formula (dogs): corrected Ca = total Ca (mg/dL) - albumin (g/dL) + 3.5.
Normal total calcium (dogs) is about 9-11.5 mg/dL. A low measured but normal corrected value suggests no true hypocalcemia.
Ionized calcium remains the gold standard.`,
	},

	// Emergency & Critical Care
	{
		ID:          "builtin-anion-gap",
		Name:        "Anion Gap",
		Description: "Anion gap for the differential diagnosis of metabolic acidosis.",
		Group:       groupEmergency,
		Variables: []calculator.Variable{
			v("Sodium (Na+)", "Na", "mEq/L"),
			v("Chloride (Cl-)", "Cl", "mEq/L"),
			v("Bicarbonate (HCO3-)", "HCO3", "mEq/L"),
		},
		Formula:    `return Na - (Cl + HCO3)`,
		ResultUnit: "mEq/L",
		HelpText: `AG = Na+ - (Cl- + HCO3-).
Normal (dogs): 12-24 mEq/L.

A high AG suggests acidosis from gained acids (ketoacidosis, uremia, ethylene glycol). A normal AG in an acidotic patient suggests bicarbonate loss (diarrhea).`,
	},
	{
		ID:          "builtin-bicarb-deficit",
		Name:        "Bicarbonate Deficit",
		Description: "Bicarbonate needed to correct metabolic acidosis.",
		Group:       groupEmergency,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Base deficit (BE)", "base_deficit", "mEq/L"),
		},
		Formula:    `return weight * 0.3 * base_deficit`,
		ResultUnit: "mEq of HCO3-",
		HelpText: `Total bicarbonate (mEq) to correct the acidosis. Take the base deficit from the blood gas as an absolute value (BE -10 is entered as 10).

Usually 1/4 to 1/3 of the calculated dose is given slowly (IV over 30-60 min) before reassessing. Fast correction can be dangerous.`,
	},
	{
		ID:          "builtin-methylxanthine-toxicity",
		Name:        "Methylxanthine Toxicity (Chocolate/Coffee)",
		Description: "Ingested dose of theobromine and caffeine.",
		Group:       groupEmergency,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Amount ingested", "amount", "g"),
			v("Methylxanthine content", "content", "mg/g"),
		},
		Formula:    `return (amount * content) / weight`,
		ResultUnit: "mg/kg",
		HelpText: `Average content (mg/g):
- Milk chocolate: ~2.5
- Semi-sweet chocolate: ~5.5
- Dark chocolate (>70%): ~16
- Coffee beans: ~15

Toxicity (mg/kg):
- >20: gastrointestinal signs
- >40: cardiovascular signs
- >60: neurological signs (seizures)
- >100: risk of death`,
	},
	{
		ID:          "builtin-emergency-drugs",
		Name:        "Emergency Drugs (Single Dose)",
		Description: "Volume of common emergency drugs (CPR, seizures).",
		Group:       groupEmergency,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Drug dose", "dose", "mg/kg"),
			v("Drug concentration", "concentration", "mg/ml"),
		},
		Formula:    `return (weight * dose) / concentration`,
		ResultUnit: "ml",
		HelpText: `Single-dose calculator for quick access. Enter the dose and concentration of the drug.

Example doses (mg/kg):
- Epinephrine (CPR): 0.01
- Atropine (CPR): 0.04
- Lidocaine (dogs, CPR): 2
- Diazepam (seizures): 0.5`,
	},
	{
		ID:          "builtin-insulin-cri",
		Name:        "Regular Insulin CRI",
		Description: "Insulin infusion rate for diabetic ketoacidosis (DKA).",
		Group:       groupEmergency,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Current blood glucose", "glucose", "mg/dL"),
		},
		Formula:    `const rate = glucose < 250 ? weight * 0.05 : weight * 0.1; return rate;`,
		ResultUnit: "U/h",
		HelpText: `Insulin infusion rate in units per hour based on blood glucose.

- Glucose > 250 mg/dL: 0.1 U/kg/h
- Glucose < 250 mg/dL: 0.05 U/kg/h

Preparation: add 2.2 U/kg (dogs) or 1.1 U/kg (cats) of regular insulin to 250 ml of 0.9% NaCl; a pump rate of 10 ml/h delivers the calculated dose. Check glucose every 1-2 hours.`,
	},
	{
		ID:          "builtin-ibuprofen-toxicity",
		Name:        "NSAID Toxicity (Ibuprofen)",
		Description: "Ingested ibuprofen dose and the associated risk.",
		Group:       groupEmergency,
		Variables: []calculator.Variable{
			v("Dog weight", "weight", "kg"),
			v("Total dose ingested", "dose_mg", "mg"),
		},
		Formula: `const dosePerKg = dose_mg / weight;
let risk = "";
if (dosePerKg >= 400) {
  risk = "SEVERE: risk of acute kidney failure, seizures and coma.";
} else if (dosePerKg >= 175) {
  risk = "HIGH: risk of acute kidney failure plus GI signs.";
} else if (dosePerKg >= 25) {
  risk = "MODERATE: risk of gastric ulcers, vomiting and diarrhea.";
} else {
  risk = "LOW: usually mild or no signs, treatment may still be advised.";
}
return dosePerKg.toFixed(2) + ' mg/kg. Risk: ' + risk;`,
		HelpText: `Cats are far more sensitive; treat any dose as dangerous.

Toxicity ranges (dogs):
- >25 mg/kg: gastrointestinal signs
- >175 mg/kg: risk of acute kidney injury
- >400 mg/kg: central nervous system effects

Prompt decontamination, activated charcoal and gastroprotectants are key.`,
	},
	{
		ID:          "builtin-xylitol-toxicity",
		Name:        "Xylitol Toxicity",
		Description: "Ingested xylitol dose and the associated risk.",
		Group:       groupEmergency,
		Variables: []calculator.Variable{
			v("Dog weight", "weight", "kg"),
			v("Xylitol ingested", "xylitol_g", "g"),
		},
		Formula: `const dosePerKg = (xylitol_g * 1000) / weight;
let risk = "";
if (dosePerKg >= 500) {
  risk = "SEVERE: risk of acute hepatic necrosis and severe hypoglycemia.";
} else if (dosePerKg >= 75) {
  risk = "HIGH: risk of severe, potentially fatal hypoglycemia.";
} else {
  risk = "LOW: risk of mild to moderate hypoglycemia.";
}
return dosePerKg.toFixed(2) + ' mg/kg. Risk: ' + risk;`,
		HelpText: `Xylitol is extremely dangerous for dogs.

- >75-100 mg/kg: massive insulin release, severe hypoglycemia within 30-60 minutes.
- >500 mg/kg: risk of fulminant acute liver failure.

Xylitol content varies widely between products. Monitor glucose and support the liver.`,
	},

	// Pharmacology & Dosing
	{
		ID:          "builtin-bsa",
		Name:        "Body Surface Area (BSA)",
		Description: "Body surface area, used for chemotherapy dosing.",
		Group:       groupPharmacy,
		Variables:   []calculator.Variable{v("Patient weight", "weight", "kg")},
		Formula:     `return 0.101 * (weight ** (2/3))`,
		ResultUnit:  "m²",
		HelpText:    "BSA correlates better than weight with basal metabolism and drug clearance, which allows safer dosing of drugs with a narrow therapeutic index.",
	},
	{
		ID:          "builtin-generic-cri",
		Name:        "Constant Rate Infusion (Generic)",
		Description: "Volume of a drug to add to every 100 ml of fluid.",
		Group:       groupPharmacy,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Drug dose", "dose", "mcg/kg/min"),
			v("Drug concentration", "concentration", "mg/ml"),
			v("Fluid rate", "fluidRate", "ml/h"),
		},
		Formula:    `return ((dose * weight * 60) / (concentration * 1000) / fluidRate) * 100`,
		ResultUnit: "ml/100ml of fluid",
		HelpText:   "Turns a dose in mcg/kg/min into a practical volume to add to the fluid bag.",
	},

	// Fluid Therapy & Electrolytes
	{
		ID:          "builtin-fluid-no-urine",
		Name:        "Fluid Therapy (Without Urine Measurement)",
		Description: "Fluid rate from dehydration, maintenance and estimated losses.",
		Group:       groupFluids,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Dehydration", "dehydration", "%"),
			v("Estimated losses (vomiting/diarrhea)", "losses", "ml/kg/day"),
		},
		Formula:    `return (((weight * (dehydration / 100) * 1000) + (weight * 50)) + (weight * losses)) / 24`,
		ResultUnit: "ml/h",
		HelpText: `For when losses cannot be measured.

Maintenance: 50 ml/kg/day.
Estimated losses: e.g. 20-40 ml/kg/day for mild to moderate losses. Enter 0 if none.`,
	},
	{
		ID:          "builtin-fluid-with-urine",
		Name:        "Fluid Therapy (With Urine Measurement)",
		Description: "Fluid rate from maintenance, ongoing losses (urine and other) and deficit replacement.",
		Group:       groupFluids,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Dehydration", "dehydration", "%"),
			v("Urine output", "urine_output", "ml/h"),
			v("Other losses (vomiting, etc.)", "other_losses", "ml/h"),
		},
		Formula:    `return ((weight * (dehydration / 100) * 1000) / 24) + ((weight * 20) / 24) + urine_output + other_losses`,
		ResultUnit: "ml/h",
		HelpText: `"Ins and outs" method for critical patients with a urinary catheter.

Deficit: dehydration replaced over 24 h.
Maintenance: insensible losses, 20 ml/kg/day.
Ongoing losses: urine and other measured losses are replaced ml for ml.`,
	},
	{
		ID:          "builtin-free-water-deficit",
		Name:        "Free Water Deficit",
		Description: "Free water volume needed to correct hypernatremia.",
		Group:       groupFluids,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Current serum sodium (Na+)", "current_na", "mEq/L"),
			v("Normal serum sodium (e.g. 145)", "normal_na", "mEq/L"),
		},
		Formula:    `return ((current_na / normal_na) - 1) * (weight * 0.6) * 1000`,
		ResultUnit: "ml of free water",
		HelpText: `Volume of free water (e.g. 5% dextrose in water) to give.

Correct slowly, over 24-48 hours, to avoid cerebral edema. Sodium should not fall faster than 0.5-1.0 mEq/L per hour.`,
	},
	{
		ID:          "builtin-serum-osmolality",
		Name:        "Serum Osmolality",
		Description: "Estimated serum osmolality. Enter BUN and glucose in mg/dL.",
		Group:       groupFluids,
		Variables: []calculator.Variable{
			v("Sodium (Na+)", "na", "mEq/L"),
			v("Potassium (K+)", "k", "mEq/L"),
			v("Urea (BUN)", "bun", "mg/dL"),
			v("Glucose", "glucose", "mg/dL"),
		},
		Formula:    `return 2 * (na + k) + (bun / 2.8) + (glucose / 18)`,
		ResultUnit: "mOsm/kg",
		HelpText:   "Osmolal gap: if the measured osmolality exceeds the calculated one by more than 10-15 mOsm/kg, suspect toxins such as ethylene glycol.",
	},
	{
		ID:          "builtin-potassium-repo",
		Name:        "Potassium Supplementation (KCl)",
		Description: "KCl to add to a fluid bag based on the deficit.",
		Group:       groupFluids,
		Variables: []calculator.Variable{
			v("Patient serum potassium", "serum_k", "mEq/L"),
			v("Fluid bag volume", "fluid_vol", "ml"),
		},
		Formula: `const getKcl = (k) => {
  if (k >= 3.1) return 20;
  if (k >= 2.6) return 30;
  if (k >= 2.1) return 40;
  return 60;
};
const kclPerLiter = getKcl(serum_k);
const totalKcl = (kclPerLiter / 1000) * fluid_vol;
return 'Add ' + totalKcl.toFixed(1) + ' mEq of KCl (' + kclPerLiter + ' mEq/L)';`,
		HelpText: `Supplementation table (mEq/L):
- K+ 3.1-3.5: 20
- K+ 2.6-3.0: 30
- K+ 2.1-2.5: 40
- K+ < 2.1: 60

Potassium must not be infused faster than 0.5 mEq/kg/h.`,
	},
	{
		ID:          "builtin-drip-rate-calculator",
		Name:        "Drip Rate",
		Description: "Converts a fluid rate (ml/h) to drops per minute or seconds per drop.",
		Group:       groupFluids,
		Variables: []calculator.Variable{
			v("Fluid rate", "fluidRate", "ml/h"),
			v("Drip set factor", "dripFactor", "drops/ml"),
		},
		Formula: `const dropsPerMin = (fluidRate * dripFactor) / 60;
const secPerDrop = 3600 / (fluidRate * dripFactor);
if (isNaN(dropsPerMin) || !isFinite(dropsPerMin)) return "Check the inputs.";
return dropsPerMin.toFixed(1) + ' drops/minute OR 1 drop every ' + secPerDrop.toFixed(1) + ' seconds.';`,
		HelpText: `Drip speed for giving fluids without a pump.

Common drip sets:
- Microdrip: 60 drops/ml
- Macrodrip: 20 drops/ml (standard) or 15 drops/ml`,
	},

	// Nutrition
	{
		ID:          "builtin-rer",
		Name:        "Resting Energy Requirement (RER)",
		Description: "Energy needed by a patient at rest.",
		Group:       groupNutrition,
		Variables:   []calculator.Variable{v("Patient weight", "weight", "kg")},
		Formula:     `return 70 * (weight ** 0.75)`,
		ResultUnit:  "kcal/day",
		HelpText:    "The calories needed to keep vital functions running at rest. The starting point of any nutrition plan.",
	},
	{
		ID:          "builtin-der",
		Name:        "Daily Energy Requirement (DER)",
		Description: "Daily calories: RER times a life stage factor.",
		Group:       groupNutrition,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Life stage factor", "factor", "factor"),
		},
		Formula:    `return (70 * (weight ** 0.75)) * factor`,
		ResultUnit: "kcal/day",
		HelpText: `Common factors:
- Neutered dog: 1.6, neutered cat: 1.2
- Puppies: 3.0, critical patient: 1.0`,
	},
	{
		ID:          "builtin-dog-food-calc",
		Name:        "Daily Food Amount (Dogs)",
		Description: "Daily food amount from the energy requirement and the food's energy density.",
		Group:       groupNutrition,
		Variables: []calculator.Variable{
			v("Daily energy requirement (DER)", "der", "kcal/day"),
			v("Food energy density", "kcal_per_gram", "kcal/g"),
		},
		Formula:    `return der / kcal_per_gram`,
		ResultUnit: "grams/day",
		HelpText: `Works for dry or wet food of any brand.

DER: use the DER calculator.
Energy density: printed on the package. Divide kcal/kg by 1000 for kcal/g.`,
	},
	{
		ID:          "builtin-cat-food-calc",
		Name:        "Daily Food Amount (Cats)",
		Description: "Daily food amount from the energy requirement and the food's energy density.",
		Group:       groupNutrition,
		Variables: []calculator.Variable{
			v("Daily energy requirement (DER)", "der", "kcal/day"),
			v("Food energy density", "kcal_per_gram", "kcal/g"),
		},
		Formula:    `return der / kcal_per_gram`,
		ResultUnit: "grams/day",
		HelpText: `Works for dry or wet cat food of any brand.

DER: use the DER calculator with cat factors.
Energy density: printed on the package.`,
	},
	{
		ID:          "builtin-feeding-tube",
		Name:        "Feeding Tube",
		Description: "Enteral diet volume per meal for tube-fed patients.",
		Group:       groupNutrition,
		Variables: []calculator.Variable{
			v("Daily energy requirement (DER)", "der", "kcal/day"),
			v("Diet energy density", "diet_density", "kcal/ml"),
			v("Meals per day", "num_feedings", ""),
		},
		Formula: `const total_volume = der / diet_density;
const volume_per_feeding = total_volume / num_feedings;
return 'Total volume: ' + total_volume.toFixed(1) + ' ml/day. Per meal: ' + volume_per_feeding.toFixed(1) + ' ml';`,
		HelpText: `Diet density is usually 1.0-1.5 kcal/ml. Start with 4-6 meals a day.

Introduce 1/3 of the volume on day one, 2/3 on day two and the full volume on day three while watching tolerance.`,
	},

	// Transfusion
	{
		ID:          "builtin-transfusion-volume-speed",
		Name:        "Whole Blood Transfusion Volume and Rate",
		Description: "Total volume and starting rate for a whole blood transfusion.",
		Group:       groupTransfusion,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Current PCV", "currentPcv", "%"),
			v("Target PCV", "desiredPcv", "%"),
			v("Donor bag PCV", "bagPcv", "%"),
			v("Blood volume (dog=90, cat=60)", "bloodVolConstant", "ml/kg"),
		},
		Formula: `const totalVolume = weight * bloodVolConstant * ((desiredPcv - currentPcv) / bagPcv);
const initialRate = weight * 0.25;
return 'Total volume: ' + totalVolume.toFixed(2) + ' ml. Starting rate (15min): ' + initialRate.toFixed(2) + ' ml/h';`,
		HelpText: `Donor bag PCV is usually 40-45% for dogs and 35-40% for cats.
Blood volume constant: 90 for dogs, 60 for cats.

Start slowly (0.25 ml/kg/h) for the first 15-30 minutes to watch for reactions, then speed up to finish within 4 hours.`,
	},
	{
		ID:          "builtin-transfusion-drip-rate",
		Name:        "Transfusion Drip Rate",
		Description: "Converts a blood infusion rate (ml/h) to seconds per drop.",
		Group:       groupTransfusion,
		Variables: []calculator.Variable{
			v("Infusion rate", "infusionRate", "ml/h"),
			v("Blood set drip factor", "dripFactor", "drops/ml"),
		},
		Formula:    `return 3600 / (infusionRate * dripFactor)`,
		ResultUnit: "seconds per drop",
		HelpText:   "Blood sets are macrodrip, usually 10-15 drops/ml. Check the package. The result is the wait in seconds between drops.",
	},
	{
		ID:          "builtin-plasma-transfusion",
		Name:        "Plasma and Blood Component Transfusion",
		Description: "Volume of plasma or other blood components to transfuse.",
		Group:       groupTransfusion,
		Variables: []calculator.Variable{
			v("Patient weight", "weight", "kg"),
			v("Target dose", "dose", "ml/kg"),
		},
		Formula:    `return weight * dose`,
		ResultUnit: "ml",
		HelpText: `Standard doses (ml/kg):
- Fresh frozen plasma: 10-20 ml/kg
- Cryoprecipitate: 1 unit / 10 kg
- Platelet concentrate: 1 unit / 10 kg

Give the total volume over 4 hours, starting slowly to watch for reactions.`,
	},
}
